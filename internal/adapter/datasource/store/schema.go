// file: internal/adapter/datasource/store/schema.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"Jobly/internal/adapter/datasource/sqlbuilder"
)

// ddl 按方言保存建表语句。两种方言只在自增主键与小数类型上有差异。
type ddl struct {
	companies string
	jobs      string
	users     string
	indexes   []string
}

var postgresDDL = ddl{
	companies: `
    CREATE TABLE IF NOT EXISTS companies (
        handle VARCHAR(25) PRIMARY KEY,
        name TEXT NOT NULL,
        num_employees INTEGER CHECK (num_employees >= 0),
        description TEXT NOT NULL,
        logo_url TEXT
    );`,
	jobs: `
    CREATE TABLE IF NOT EXISTS jobs (
        id BIGSERIAL PRIMARY KEY,
        title TEXT NOT NULL,
        salary INTEGER CHECK (salary >= 0),
        equity NUMERIC CHECK (equity >= 0 AND equity <= 1.0),
        company_handle VARCHAR(25) NOT NULL REFERENCES companies (handle) ON DELETE CASCADE
    );`,
	users: `
    CREATE TABLE IF NOT EXISTS users (
        username VARCHAR(25) PRIMARY KEY,
        password TEXT NOT NULL,
        first_name TEXT NOT NULL,
        last_name TEXT NOT NULL,
        email TEXT NOT NULL CHECK (position('@' IN email) > 1),
        is_admin BOOLEAN NOT NULL DEFAULT FALSE
    );`,
	indexes: []string{
		`CREATE INDEX IF NOT EXISTS idx_jobs_company_handle ON jobs (company_handle);`,
	},
}

var sqliteDDL = ddl{
	companies: `
    CREATE TABLE IF NOT EXISTS companies (
        handle TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        num_employees INTEGER CHECK (num_employees >= 0),
        description TEXT NOT NULL,
        logo_url TEXT
    );`,
	jobs: `
    CREATE TABLE IF NOT EXISTS jobs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        salary INTEGER CHECK (salary >= 0),
        equity REAL CHECK (equity >= 0 AND equity <= 1.0),
        company_handle TEXT NOT NULL REFERENCES companies (handle) ON DELETE CASCADE
    );`,
	users: `
    CREATE TABLE IF NOT EXISTS users (
        username TEXT PRIMARY KEY,
        password TEXT NOT NULL,
        first_name TEXT NOT NULL,
        last_name TEXT NOT NULL,
        email TEXT NOT NULL CHECK (instr(email, '@') > 1),
        is_admin BOOLEAN NOT NULL DEFAULT FALSE
    );`,
	indexes: []string{
		`CREATE INDEX IF NOT EXISTS idx_jobs_company_handle ON jobs (company_handle);`,
	},
}

// InitTables 在启动时检查并创建所有业务表，可重复执行。
func InitTables(ctx context.Context, db *sql.DB, dialect sqlbuilder.Dialect) error {
	stmts := postgresDDL
	if dialect == sqlbuilder.SQLite {
		stmts = sqliteDDL
	}

	if _, err := db.ExecContext(ctx, stmts.companies); err != nil {
		return fmt.Errorf("创建 'companies' 表失败: %w", err)
	}
	if _, err := db.ExecContext(ctx, stmts.jobs); err != nil {
		return fmt.Errorf("创建 'jobs' 表失败: %w", err)
	}
	if _, err := db.ExecContext(ctx, stmts.users); err != nil {
		return fmt.Errorf("创建 'users' 表失败: %w", err)
	}
	for _, q := range stmts.indexes {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("创建索引失败: %w", err)
		}
	}

	slog.Info("✅ 数据库: 所有业务表结构初始化/检查完成。", "dialect", dialect.String())
	return nil
}
