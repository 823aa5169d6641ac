// Package config 负责加载与热更新服务配置。
// 优先级（高到低）：命令行参数 > 环境变量 (JOBLY_*) > .env > 配置文件 > 默认值。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 是所有环境变量的前缀，例如 JOBLY_DATABASE_DSN
const EnvPrefix = "JOBLY"

// DefaultJWTSecret 仅用于本地开发，启动时会输出警告。
const DefaultJWTSecret = "JoblyDevSecret_change_me"

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	PprofAddr   string   `mapstructure:"pprof_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
	CacheSize     int           `mapstructure:"cache_size"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type RateLimitConfig struct {
	PerSecond        float64       `mapstructure:"per_second"`
	Burst            int           `mapstructure:"burst"`
	LoginMaxFailures int           `mapstructure:"login_max_failures"`
	LoginLockout     time.Duration `mapstructure:"login_lockout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config 是服务的完整配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// SetDefaults 写入所有配置项的默认值。每个键都必须有默认值，环境变量才能参与 Unmarshal。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.pprof_addr", "")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "instance/jobly.db")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", 10*time.Minute)

	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.admin_username", "")
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("auth.cache_size", 1024)
	v.SetDefault("auth.cache_ttl", time.Minute)

	v.SetDefault("rate_limit.per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.login_max_failures", 5)
	v.SetDefault("rate_limit.login_lockout", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// flagKeys 把命令行参数名映射为配置键
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"pprof-addr": "server.pprof_addr",
	"db-driver":  "database.driver",
	"db-dsn":     "database.dsn",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// RegisterFlags 在 flags 上声明可覆盖配置的参数
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("addr", "", "HTTP 监听地址 (默认 :3001)")
	flags.String("pprof-addr", "", "pprof 监听地址，为空时不启用")
	flags.String("db-driver", "", "数据库驱动: postgres | sqlite")
	flags.String("db-dsn", "", "数据库连接串或 SQLite 文件路径")
	flags.String("log-level", "", "日志级别: debug | info | warn | error")
	flags.String("log-format", "", "日志格式: json | text")
}

// Load 依次读取 .env、配置文件、环境变量和命令行参数。
// file 为空时在当前目录查找 jobly.yaml，找不到不算错误。
func Load(v *viper.Viper, file string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件 '%s' 失败: %w", file, err)
		}
	} else {
		v.SetConfigName("jobly")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			// 只有显式设置的参数才覆盖配置，未设置时保留配置文件与环境变量的值
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("绑定参数 '--%s' 失败: %w", name, err)
				}
			}
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置到结构体失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置的取值范围
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "pgx", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("不支持的数据库驱动: '%s'", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn 不能为空")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret 不能为空")
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		return fmt.Errorf("auth.bcrypt_cost 超出范围 [4, 31]: %d", c.Auth.BcryptCost)
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate_limit.per_second 与 rate_limit.burst 必须为正数")
	}
	return nil
}

// UsesDefaultSecret 报告是否仍在使用开发用的默认 JWT 密钥
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.JWTSecret == DefaultJWTSecret
}

// Watch 监听配置文件变更，解析成功后回调 onChange；解析失败只记录日志并保留旧配置。
// 没有使用配置文件时什么也不做。
func Watch(v *viper.Viper, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			slog.Error("配置文件变更后解析失败，继续使用旧配置", "file", e.Name, "error", err)
			return
		}
		slog.Info("检测到配置文件变更", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}
