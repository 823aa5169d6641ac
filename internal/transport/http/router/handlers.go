// file: internal/transport/http/router/handlers.go
package router

import (
	"net/http"
	"strconv"
	"strings"

	"Jobly/internal/adapter/datasource/sqlbuilder"
	"Jobly/internal/core/domain"
	"Jobly/internal/core/port"
	"Jobly/internal/service"
	"Jobly/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// 处理器只负责绑定与校验请求，业务错误通过 c.Error 交给 ErrorHandlingMiddleware。

// bindQuery 绑定并校验查询参数。空值参数（例如 ?maxSalary=）视为未提供，
// 否则 gin 会把它绑定为指向零值的指针，从而产生一个过滤掉所有行的条件。
func bindQuery(c *gin.Context, obj any) error {
	form := make(map[string][]string)
	for key, values := range c.Request.URL.Query() {
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				form[key] = append(form[key], v)
			}
		}
	}
	if err := binding.MapFormWithTag(obj, form, "form"); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}

/* ---------- 认证 ---------- */

// tokenHandler 用用户名/密码换取令牌。
// 请求体可能已被 LoginFailureLock 读取，因此使用 ShouldBindBodyWith。
func tokenHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds domain.Credentials
		if err := c.ShouldBindBodyWith(&creds, binding.JSON); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		token, err := accounts.Login(c.Request.Context(), creds)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// registerHandler 处理自助注册，新用户永远不是管理员
func registerHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in domain.NewUser
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		_, token, err := accounts.Register(c.Request.Context(), in, false)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": token})
	}
}

/* ---------- 公司 ---------- */

// companyPatch 是 PATCH /companies/:handle 允许修改的字段，handle 不可修改
type companyPatch struct {
	Name         *string `json:"name" binding:"omitempty,min=1"`
	Description  *string `json:"description"`
	NumEmployees *int    `json:"numEmployees" binding:"omitempty,min=0"`
	LogoURL      *string `json:"logoUrl" binding:"omitempty,url"`
}

func (p companyPatch) fields() sqlbuilder.UpdateSet {
	var set sqlbuilder.UpdateSet
	if p.Name != nil {
		set = set.Set("name", *p.Name)
	}
	if p.Description != nil {
		set = set.Set("description", *p.Description)
	}
	if p.NumEmployees != nil {
		set = set.Set("numEmployees", *p.NumEmployees)
	}
	if p.LogoURL != nil {
		set = set.Set("logoUrl", *p.LogoURL)
	}
	return set
}

func listCompaniesHandler(companies CompanyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f domain.CompanyFilter
		if err := bindQuery(c, &f); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		list, err := companies.FindAll(c.Request.Context(), f)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"companies": list})
	}
}

func getCompanyHandler(companies CompanyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		company, err := companies.Get(c.Request.Context(), c.Param("handle"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"company": company})
	}
}

func createCompanyHandler(companies CompanyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in domain.NewCompany
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		company, err := companies.Create(c.Request.Context(), in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"company": company})
	}
}

func updateCompanyHandler(companies CompanyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch companyPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		company, err := companies.Update(c.Request.Context(), c.Param("handle"), patch.fields())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"company": company})
	}
}

func removeCompanyHandler(companies CompanyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle := c.Param("handle")
		if err := companies.Remove(c.Request.Context(), handle); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": handle})
	}
}

/* ---------- 职位 ---------- */

// jobPatch 是 PATCH /jobs/:id 允许修改的字段，id 与 companyHandle 不可修改
type jobPatch struct {
	Title  *string  `json:"title" binding:"omitempty,min=1"`
	Salary *int     `json:"salary" binding:"omitempty,min=0"`
	Equity *float64 `json:"equity" binding:"omitempty,min=0,max=1"`
}

func (p jobPatch) fields() sqlbuilder.UpdateSet {
	var set sqlbuilder.UpdateSet
	if p.Title != nil {
		set = set.Set("title", *p.Title)
	}
	if p.Salary != nil {
		set = set.Set("salary", *p.Salary)
	}
	if p.Equity != nil {
		set = set.Set("equity", *p.Equity)
	}
	return set
}

// jobID 解析路径中的职位 ID，非法 ID 视为不存在的职位
func jobID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, port.NotFound("没有该职位 (no job): %s", raw)
	}
	return id, nil
}

func listJobsHandler(jobs JobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f domain.JobFilter
		if err := bindQuery(c, &f); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		list, err := jobs.FindAll(c.Request.Context(), f)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": list})
	}
}

func getJobHandler(jobs JobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := jobID(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		job, err := jobs.Get(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": job})
	}
}

func createJobHandler(jobs JobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in domain.NewJob
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		job, err := jobs.Create(c.Request.Context(), in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"job": job})
	}
}

func updateJobHandler(jobs JobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := jobID(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		var patch jobPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		job, err := jobs.Update(c.Request.Context(), id, patch.fields())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": job})
	}
}

func removeJobHandler(jobs JobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := jobID(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if err := jobs.Remove(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			return
		}
		// 与公司、用户一致，回显路径中的原始字符串
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
	}
}

/* ---------- 用户 ---------- */

// userPatch 是 PATCH /users/:username 允许修改的字段；用户名与管理员标志不可通过此接口修改
type userPatch struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=30"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=30"`
	Password  *string `json:"password" binding:"omitempty,min=5,max=20"`
	Email     *string `json:"email" binding:"omitempty,email,max=60"`
}

func (p userPatch) fields() sqlbuilder.UpdateSet {
	var set sqlbuilder.UpdateSet
	if p.FirstName != nil {
		set = set.Set("firstName", *p.FirstName)
	}
	if p.LastName != nil {
		set = set.Set("lastName", *p.LastName)
	}
	if p.Password != nil {
		set = set.Set("password", *p.Password)
	}
	if p.Email != nil {
		set = set.Set("email", *p.Email)
	}
	return set
}

func listUsersHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := accounts.List(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// createUserHandler 由管理员创建用户，可以创建管理员
func createUserHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in domain.NewUser
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		user, token, err := accounts.Register(c.Request.Context(), in, true)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
	}
}

func getUserHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := accounts.Get(c.Request.Context(), c.Param("username"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

func updateUserHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch userPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			_ = c.Error(middleware.BindError(err))
			return
		}
		user, err := accounts.Update(c.Request.Context(), c.Param("username"), patch.fields())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

func removeUserHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")
		if err := accounts.Remove(c.Request.Context(), username); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": username})
	}
}
