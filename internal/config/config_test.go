// file: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 5, cfg.RateLimit.LoginMaxFailures)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.UsesDefaultSecret())
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("JOBLY_DATABASE_DRIVER", "postgres")
	t.Setenv("JOBLY_DATABASE_DSN", "postgres://jobly@localhost/jobly")
	t.Setenv("JOBLY_AUTH_TOKEN_TTL", "2h")
	t.Setenv("JOBLY_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(viper.New(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://jobly@localhost/jobly", cfg.Database.DSN)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	path := writeFile(t, t.TempDir(), "jobly.yaml", `
server:
  addr: ":8080"
database:
  driver: sqlite
  dsn: /tmp/from-file.db
log:
  level: debug
rate_limit:
  per_second: 3
  burst: 6
`)
	t.Setenv("JOBLY_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--addr", ":9090"}))

	cfg, err := Load(viper.New(), path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr, "命令行参数优先级最高")
	assert.Equal(t, "warn", cfg.Log.Level, "环境变量覆盖配置文件")
	assert.Equal(t, "/tmp/from-file.db", cfg.Database.DSN)
	assert.Equal(t, 3.0, cfg.RateLimit.PerSecond)
	assert.Equal(t, 6, cfg.RateLimit.Burst)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	t.Setenv("JOBLY_SERVER_ADDR", ":7000")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(viper.New(), "", flags)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"未知驱动":      func(c *Config) { c.Database.Driver = "oracle" },
		"空 DSN":     func(c *Config) { c.Database.DSN = "" },
		"空密钥":       func(c *Config) { c.Auth.JWTSecret = "" },
		"bcrypt 过低": func(c *Config) { c.Auth.BcryptCost = 2 },
		"限流为零":      func(c *Config) { c.RateLimit.Burst = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(viper.New(), "", nil)
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "jobly.yaml", "log:\n  level: info\n")

	v := viper.New()
	_, err := Load(v, path, nil)
	require.NoError(t, err)

	var level atomic.Value
	Watch(v, func(cfg *Config) { level.Store(cfg.Log.Level) })

	writeFile(t, dir, "jobly.yaml", "log:\n  level: debug\n")
	assert.Eventually(t, func() bool {
		got, _ := level.Load().(string)
		return got == "debug"
	}, 5*time.Second, 50*time.Millisecond)
}
