// file: internal/cli/bootstrap.go
package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"Jobly/internal/adapter/datasource/store"
	"Jobly/internal/config"
	"Jobly/internal/service"
)

// openStore 打开连接池、初始化表结构并构建 Store。返回的 closeFn 总是可以安全调用。
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, func(), error) {
	db, dialect, err := store.Open(ctx, store.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() {
		slog.Info("正在关闭数据库连接...")
		if err := db.Close(); err != nil {
			slog.Error("关闭数据库时发生错误", "error", err)
		}
	}

	if err := store.InitTables(ctx, db, dialect); err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return store.New(db, dialect, cfg.Auth.BcryptCost), closeFn, nil
}

// newAccounts 组装令牌服务、认证器与账户服务
func newAccounts(cfg *config.Config, st *store.Store) (*service.AccountService, *service.Authenticator, error) {
	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, nil, err
	}
	auth := service.NewAuthenticator(tokens, st.Users, cfg.Auth.CacheSize, cfg.Auth.CacheTTL)
	return service.NewAccountService(st.Users, tokens, auth), auth, nil
}

// ensureAdmin 在用户表为空时创建初始管理员。未配置密码时生成一个随机密码并输出到日志。
func ensureAdmin(ctx context.Context, accounts *service.AccountService, cfg *config.Config) error {
	username := cfg.Auth.AdminUsername
	if username == "" {
		username = "admin"
	}
	password := cfg.Auth.AdminPassword
	generated := password == ""
	if generated {
		password = genPassword()
	}

	created, err := accounts.EnsureAdmin(ctx, username, password)
	if err != nil {
		return err
	}
	if created && generated {
		slog.Warn("系统中无用户，已生成初始管理员，请尽快修改密码", "username", username, "password", password)
	}
	return nil
}

// genPassword 生成 16 位十六进制随机密码
func genPassword() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b) // 失败时 crypto/rand 会直接终止程序
	return hex.EncodeToString(b)
}
