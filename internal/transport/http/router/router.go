// file: internal/transport/http/router/router.go
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"Jobly/internal/adapter/datasource/sqlbuilder"
	"Jobly/internal/core/domain"
	"Jobly/internal/core/port"
	"Jobly/internal/observe"
	"Jobly/internal/service"
	"Jobly/internal/transport/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// CompanyRepository 是公司路由依赖的存储
type CompanyRepository interface {
	Create(ctx context.Context, in domain.NewCompany) (domain.Company, error)
	FindAll(ctx context.Context, f domain.CompanyFilter) ([]domain.Company, error)
	Get(ctx context.Context, handle string) (domain.CompanyDetail, error)
	Update(ctx context.Context, handle string, set sqlbuilder.UpdateSet) (domain.Company, error)
	Remove(ctx context.Context, handle string) error
}

// JobRepository 是职位路由依赖的存储
type JobRepository interface {
	Create(ctx context.Context, in domain.NewJob) (domain.Job, error)
	FindAll(ctx context.Context, f domain.JobFilter) ([]domain.Job, error)
	Get(ctx context.Context, id int64) (domain.Job, error)
	Update(ctx context.Context, id int64, set sqlbuilder.UpdateSet) (domain.Job, error)
	Remove(ctx context.Context, id int64) error
}

// Pinger 用于健康检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies 结构体用于将所有依赖项注入到路由器中
type Dependencies struct {
	Companies CompanyRepository
	Jobs      JobRepository
	Accounts  *service.AccountService
	Auth      *service.Authenticator
	DB        Pinger

	// IPLimiter 与 LoginLock 为 nil 时不启用对应的限流
	IPLimiter *middleware.IPRateLimiter
	LoginLock *middleware.LoginFailureLock

	CORSOrigins []string
}

func init() {
	// 请求体中出现未声明的字段时直接拒绝，例如在 PATCH /jobs/:id 中修改 companyHandle
	binding.EnableDecoderDisallowUnknownFields = true
}

// New 创建并配置一个基于 Gin 的 HTTP 路由器
func New(deps Dependencies) http.Handler {
	router := gin.New()

	// --- 配置全局中间件 ---
	// 顺序: 请求ID -> 访问日志/指标 (需要看到最终状态码) -> 统一错误处理 -> 限流 -> 认证
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(requestLogger())
	router.Use(observe.PrometheusMiddleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	router.Use(middleware.ErrorHandlingMiddleware())
	if deps.IPLimiter != nil {
		router.Use(deps.IPLimiter.Middleware())
	}
	router.Use(authMiddleware(deps.Auth))

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(port.NotFound("路由不存在: %s %s", c.Request.Method, c.Request.URL.Path))
	})

	// --- 系统平面 ---
	router.GET("/healthz", healthHandler(deps.DB))
	router.GET("/metrics", gin.WrapH(observe.Handler()))

	// --- 认证平面 ---
	authGroup := router.Group("/auth")
	{
		login := []gin.HandlerFunc{}
		if deps.LoginLock != nil {
			login = append(login, deps.LoginLock.Middleware())
		}
		login = append(login, tokenHandler(deps.Accounts))
		authGroup.POST("/token", login...)
		authGroup.POST("/register", registerHandler(deps.Accounts))
	}

	// --- 公司 ---
	companyGroup := router.Group("/companies")
	{
		companyGroup.GET("", listCompaniesHandler(deps.Companies))
		companyGroup.GET("/:handle", getCompanyHandler(deps.Companies))
		companyGroup.POST("", requireAdmin(), createCompanyHandler(deps.Companies))
		companyGroup.PATCH("/:handle", requireAdmin(), updateCompanyHandler(deps.Companies))
		companyGroup.DELETE("/:handle", requireAdmin(), removeCompanyHandler(deps.Companies))
	}

	// --- 职位 ---
	jobGroup := router.Group("/jobs")
	{
		jobGroup.GET("", listJobsHandler(deps.Jobs))
		jobGroup.GET("/:id", getJobHandler(deps.Jobs))
		jobGroup.POST("", requireAdmin(), createJobHandler(deps.Jobs))
		jobGroup.PATCH("/:id", requireAdmin(), updateJobHandler(deps.Jobs))
		jobGroup.DELETE("/:id", requireAdmin(), removeJobHandler(deps.Jobs))
	}

	// --- 用户 ---
	userGroup := router.Group("/users")
	{
		userGroup.GET("", requireAdmin(), listUsersHandler(deps.Accounts))
		userGroup.POST("", requireAdmin(), createUserHandler(deps.Accounts))
		userGroup.GET("/:username", requireAdminOrSelf(), getUserHandler(deps.Accounts))
		userGroup.PATCH("/:username", requireAdminOrSelf(), updateUserHandler(deps.Accounts))
		userGroup.DELETE("/:username", requireAdminOrSelf(), removeUserHandler(deps.Accounts))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// =============================================================================
//  Gin 中间件 (Middleware)
// =============================================================================

// requestLogger 为每个请求输出一条结构化访问日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		slog.Log(c.Request.Context(), level, "HTTP 请求",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"ip", c.ClientIP(),
			"request_id", c.GetString(middleware.RequestIDKey),
		)
	}
}

// authMiddleware 是一个将 service.Authenticator 集成到 gin 流程的中间件
func authMiddleware(auth *service.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, c.Request)
		if c.Writer.Written() {
			c.Abort()
		}
	}
}

// requireAdmin 是一个确保只有管理员角色才能访问的中间件
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := service.ClaimFrom(c.Request)
		if claims == nil {
			middleware.WriteError(c, http.StatusUnauthorized, port.KindUnauthorized.String(), "需要认证")
			return
		}
		if !claims.IsAdmin {
			middleware.WriteError(c, http.StatusForbidden, port.KindForbidden.String(), "需要管理员权限")
			return
		}
		c.Next()
	}
}

// requireAdminOrSelf 允许管理员或路径中 :username 对应的用户本人访问
func requireAdminOrSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := service.ClaimFrom(c.Request)
		if claims == nil {
			middleware.WriteError(c, http.StatusUnauthorized, port.KindUnauthorized.String(), "需要认证")
			return
		}
		if !claims.IsAdmin && claims.Username != c.Param("username") {
			middleware.WriteError(c, http.StatusForbidden, port.KindForbidden.String(), "只能访问自己的账户")
			return
		}
		c.Next()
	}
}

// =============================================================================
//  系统处理器
// =============================================================================

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			slog.Error("健康检查: 数据库不可用", "error", err)
			middleware.WriteError(c, http.StatusServiceUnavailable, port.KindInternal.String(), "数据库不可用")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
