// file: internal/adapter/datasource/store/company.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"Jobly/internal/adapter/datasource/sqlbuilder"
	"Jobly/internal/core/domain"
	"Jobly/internal/core/port"

	"golang.org/x/sync/errgroup"
)

// companyColumns 是公司的逻辑字段到物理列的映射
var companyColumns = sqlbuilder.ColumnMap{
	"numEmployees": "num_employees",
	"logoUrl":      "logo_url",
}

const companyReturning = `handle, name, description, num_employees, logo_url`

// CompanyStore 负责 companies 表的读写
type CompanyStore struct {
	db      *sql.DB
	dialect sqlbuilder.Dialect
}

func NewCompanyStore(db *sql.DB, dialect sqlbuilder.Dialect) *CompanyStore {
	return &CompanyStore{db: db, dialect: dialect}
}

// Create 创建公司。handle 已存在时返回 BadRequest。
func (s *CompanyStore) Create(ctx context.Context, in domain.NewCompany) (domain.Company, error) {
	var existing string
	err := s.db.QueryRowContext(ctx, `SELECT handle FROM companies WHERE handle = $1`, in.Handle).Scan(&existing)
	switch {
	case err == nil:
		return domain.Company{}, port.BadRequest("公司已存在 (duplicate company): %s", in.Handle)
	case !errors.Is(err, sql.ErrNoRows):
		return domain.Company{}, fmt.Errorf("检查公司 '%s' 是否存在失败: %w", in.Handle, err)
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO companies (handle, name, description, num_employees, logo_url)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+companyReturning,
		in.Handle, in.Name, in.Description, nullable(in.NumEmployees), nullable(in.LogoURL),
	)
	c, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, fmt.Errorf("创建公司 '%s' 失败: %w", in.Handle, err)
	}
	return c, nil
}

// FindAll 按可选过滤条件列出公司，按名称排序。
func (s *CompanyStore) FindAll(ctx context.Context, f domain.CompanyFilter) ([]domain.Company, error) {
	criteria := sqlbuilder.Criteria{}.
		Contains("name", f.Name).
		AtLeast("num_employees", f.MinEmployees).
		AtMost("num_employees", f.MaxEmployees)

	where, err := sqlbuilder.Compose(s.dialect, criteria)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + companyReturning + ` FROM companies` + where.Where() + ` ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("查询公司列表失败: %w", err)
	}
	defer rows.Close()

	companies := make([]domain.Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描公司数据失败: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历公司结果集失败: %w", err)
	}
	return companies, nil
}

// Get 返回公司详情及其全部职位，两条查询并发执行。
func (s *CompanyStore) Get(ctx context.Context, handle string) (domain.CompanyDetail, error) {
	var (
		company domain.Company
		jobs    []domain.JobSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		row := s.db.QueryRowContext(gctx, `SELECT `+companyReturning+` FROM companies WHERE handle = $1`, handle)
		c, err := scanCompany(row)
		if errors.Is(err, sql.ErrNoRows) {
			return port.NotFound("没有该公司 (no company): %s", handle)
		}
		if err != nil {
			return fmt.Errorf("查询公司 '%s' 失败: %w", handle, err)
		}
		company = c
		return nil
	})
	g.Go(func() error {
		var err error
		jobs, err = s.jobsOf(gctx, handle)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.CompanyDetail{}, err
	}

	return domain.CompanyDetail{Company: company, Jobs: jobs}, nil
}

func (s *CompanyStore) jobsOf(ctx context.Context, handle string) ([]domain.JobSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, salary, equity FROM jobs WHERE company_handle = $1 ORDER BY id`, handle)
	if err != nil {
		return nil, fmt.Errorf("查询公司 '%s' 的职位失败: %w", handle, err)
	}
	defer rows.Close()

	jobs := make([]domain.JobSummary, 0)
	for rows.Next() {
		var (
			j      domain.JobSummary
			salary sql.NullInt64
			equity sql.NullFloat64
		)
		if err := rows.Scan(&j.ID, &j.Title, &salary, &equity); err != nil {
			return nil, fmt.Errorf("扫描职位数据失败: %w", err)
		}
		j.Salary = intPtr(salary)
		j.Equity = floatPtr(equity)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Update 对公司做部分更新，只修改 set 中出现的字段。
func (s *CompanyStore) Update(ctx context.Context, handle string, set sqlbuilder.UpdateSet) (domain.Company, error) {
	frag, err := sqlbuilder.PartialUpdate(set, companyColumns)
	if err != nil {
		return domain.Company{}, err
	}

	query := `UPDATE companies SET ` + frag.SQL +
		` WHERE handle = ` + sqlbuilder.Placeholder(frag.Next()) +
		` RETURNING ` + companyReturning
	args := append(frag.Args, handle)

	c, err := scanCompany(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Company{}, port.NotFound("没有该公司 (no company): %s", handle)
	}
	if err != nil {
		return domain.Company{}, fmt.Errorf("更新公司 '%s' 失败: %w", handle, err)
	}
	slog.Debug("[Store] 公司已更新", "handle", handle, "fields", set.Names())
	return c, nil
}

// Remove 删除公司，其职位随外键级联删除。
func (s *CompanyStore) Remove(ctx context.Context, handle string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("删除公司 '%s' 失败: %w", handle, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取删除结果失败: %w", err)
	}
	if n == 0 {
		return port.NotFound("没有该公司 (no company): %s", handle)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(r rowScanner) (domain.Company, error) {
	var (
		c    domain.Company
		num  sql.NullInt64
		logo sql.NullString
	)
	if err := r.Scan(&c.Handle, &c.Name, &c.Description, &num, &logo); err != nil {
		return domain.Company{}, err
	}
	c.NumEmployees = intPtr(num)
	c.LogoURL = stringPtr(logo)
	return c, nil
}
