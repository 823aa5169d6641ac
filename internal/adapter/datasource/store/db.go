// Package store 实现公司、职位、用户三类资源的持久化。
// 所有动态 SQL 都通过 sqlbuilder 生成，值只以位置参数的形式传给驱动。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"Jobly/internal/adapter/datasource/sqlbuilder"

	_ "github.com/jackc/pgx/v5/stdlib" // 注册 "pgx" 驱动
	_ "modernc.org/sqlite"             // 注册 "sqlite" 驱动
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options 描述如何打开数据库连接池
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DialectFor 把配置中的驱动名映射为 SQL 方言
func DialectFor(driver string) (sqlbuilder.Dialect, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres, "pgx", "postgresql":
		return sqlbuilder.Postgres, nil
	case DriverSQLite, "sqlite3":
		return sqlbuilder.SQLite, nil
	default:
		return 0, fmt.Errorf("不支持的数据库驱动: '%s'", driver)
	}
}

// Open 按配置打开连接池并 Ping 一次，返回连接池与对应方言。
func Open(ctx context.Context, opts Options) (*sql.DB, sqlbuilder.Dialect, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, 0, err
	}
	if opts.DSN == "" {
		return nil, 0, fmt.Errorf("数据库连接串 (dsn) 不能为空")
	}

	var db *sql.DB
	switch dialect {
	case sqlbuilder.Postgres:
		db, err = sql.Open("pgx", opts.DSN)
	case sqlbuilder.SQLite:
		dsn, dsnErr := sqliteDSN(opts.DSN)
		if dsnErr != nil {
			return nil, 0, dsnErr
		}
		db, err = sql.Open("sqlite", dsn)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("sql.Open (%s) 失败: %w", dialect, err)
	}

	configurePool(db, opts)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, 0, fmt.Errorf("ping 数据库 (%s) 失败: %w", dialect, err)
	}

	slog.Info("[Store] 数据库连接成功", "driver", dialect.String())
	return db, dialect, nil
}

// sqliteDSN 把文件路径转换为 modernc 的 DSN，并打开外键约束。
// 已经以 file: 开头的 DSN 原样使用。
func sqliteDSN(raw string) (string, error) {
	if strings.HasPrefix(raw, "file:") {
		return raw, nil
	}
	path := raw
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("无法获取当前目录: %w", err)
		}
		path = filepath.Join(cwd, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("无法创建数据库目录: %w", err)
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path), nil
}

func configurePool(db *sql.DB, opts Options) {
	numCPU := runtime.NumCPU()

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = numCPU * 4
	}
	db.SetMaxOpenConns(maxOpen)

	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = numCPU * 2
	}
	db.SetMaxIdleConns(maxIdle)

	lifetime := opts.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = 10 * time.Minute
	}
	db.SetConnMaxLifetime(lifetime)
}

// Store 聚合三类资源的存储，共享同一个连接池与方言。
type Store struct {
	DB        *sql.DB
	Dialect   sqlbuilder.Dialect
	Companies *CompanyStore
	Jobs      *JobStore
	Users     *UserStore
}

// New 基于已打开的连接池构建 Store。bcryptCost <= 0 时使用 bcrypt.DefaultCost。
func New(db *sql.DB, dialect sqlbuilder.Dialect, bcryptCost int) *Store {
	return &Store{
		DB:        db,
		Dialect:   dialect,
		Companies: NewCompanyStore(db, dialect),
		Jobs:      NewJobStore(db, dialect),
		Users:     NewUserStore(db, bcryptCost),
	}
}

// Ping 用于健康检查
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// nullable 把可选值转换为驱动参数，nil 指针写入 NULL。
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
