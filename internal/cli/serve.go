// file: internal/cli/serve.go
package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Jobly/internal/config"
	"Jobly/internal/observe"
	"Jobly/internal/transport/http/middleware"
	"Jobly/internal/transport/http/router"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configFrom(cmd.Context()), viperFrom(cmd.Context()))
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, v *viper.Viper) error {
	if cfg == nil {
		return errors.New("配置未加载")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Jobly 正在启动...", "version", Version, "driver", cfg.Database.Driver)
	if cfg.UsesDefaultSecret() {
		slog.Warn("正在使用默认的 JWT 密钥，生产环境请设置 JOBLY_AUTH_JWT_SECRET")
	}
	if observe.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	st, closeDB, err := openStore(ctx, cfg)
	defer closeDB()
	if err != nil {
		return err
	}

	accounts, auth, err := newAccounts(cfg, st)
	if err != nil {
		return err
	}
	if err := ensureAdmin(ctx, accounts, cfg); err != nil {
		return err
	}
	slog.Info("服务层: AccountService 初始化完成")

	ipLimiter := middleware.NewIPRateLimiter(ctx, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	loginLock := middleware.NewLoginFailureLock(cfg.RateLimit.LoginMaxFailures, cfg.RateLimit.LoginLockout)

	if v != nil {
		config.Watch(v, func(next *config.Config) {
			observe.SetLevel(next.Log.Level)
			ipLimiter.SetRate(next.RateLimit.PerSecond, next.RateLimit.Burst)
		})
	}

	observe.Register()
	slog.Info("监控: metrics 已注册。")

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: router.New(router.Dependencies{
			Companies:   st.Companies,
			Jobs:        st.Jobs,
			Accounts:    accounts,
			Auth:        auth,
			DB:          st,
			IPLimiter:   ipLimiter,
			LoginLock:   loginLock,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("传输层: HTTP 路由器创建完成。")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return observe.ServeUntilDone(gctx, srv, "api") })
	if pprofSrv := observe.NewPprofServer(cfg.Server.PprofAddr); pprofSrv != nil {
		g.Go(func() error { return observe.ServeUntilDone(gctx, pprofSrv, "pprof") })
	}

	err = g.Wait()
	slog.Info("程序即将退出。")
	return err
}
