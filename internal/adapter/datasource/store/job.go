// file: internal/adapter/datasource/store/job.go
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
)

// 职位的逻辑字段与列名一致
var jobColumns = sqlbuilder.ColumnMap{}

const jobReturning = `id, title, salary, equity, company_handle`

// JobStore 负责 jobs 表的读写
type JobStore struct {
	db      *sql.DB
	dialect sqlbuilder.Dialect
}

func NewJobStore(db *sql.DB, dialect sqlbuilder.Dialect) *JobStore {
	return &JobStore{db: db, dialect: dialect}
}

// Create 创建职位。公司不存在或同一公司下已有同名职位时返回 BadRequest。
func (s *JobStore) Create(ctx context.Context, in domain.NewJob) (domain.Job, error) {
	var handle string
	err := s.db.QueryRowContext(ctx, `SELECT handle FROM companies WHERE handle = $1`, in.CompanyHandle).Scan(&handle)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, port.BadRequest("公司不存在 (no company): %s", in.CompanyHandle)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("检查公司 '%s' 是否存在失败: %w", in.CompanyHandle, err)
	}

	var existing int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE title = $1 AND company_handle = $2`,
		in.Title, in.CompanyHandle,
	).Scan(&existing)
	switch {
	case err == nil:
		return domain.Job{}, port.BadRequest("职位重复 (duplicate job): %s @ %s", in.Title, in.CompanyHandle)
	case !errors.Is(err, sql.ErrNoRows):
		return domain.Job{}, fmt.Errorf("检查职位是否重复失败: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO jobs (title, salary, equity, company_handle)
         VALUES ($1, $2, $3, $4)
         RETURNING `+jobReturning,
		in.Title, nullable(in.Salary), nullable(in.Equity), in.CompanyHandle,
	)
	j, err := scanJob(row)
	if err != nil {
		return domain.Job{}, fmt.Errorf("创建职位 '%s' 失败: %w", in.Title, err)
	}
	return j, nil
}

// FindAll 按可选过滤条件列出职位，按标题与 id 排序。
func (s *JobStore) FindAll(ctx context.Context, f domain.JobFilter) ([]domain.Job, error) {
	criteria := sqlbuilder.Criteria{}.
		Contains("title", f.Title).
		AtLeast("salary", f.MinSalary).
		AtMost("salary", f.MaxSalary).
		Positive("equity", f.HasEquity)

	where, err := sqlbuilder.Compose(s.dialect, criteria)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + jobReturning + ` FROM jobs` + where.Where() + ` ORDER BY title, id`
	rows, err := s.db.QueryContext(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("查询职位列表失败: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描职位数据失败: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历职位结果集失败: %w", err)
	}
	return jobs, nil
}

// Get 按 id 返回职位
func (s *JobStore) Get(ctx context.Context, id int64) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobReturning+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, port.NotFound("没有该职位 (no job): %d", id)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("查询职位 %d 失败: %w", id, err)
	}
	return j, nil
}

// Update 对职位做部分更新。
//
//	UPDATE jobs SET "title"=$1, "salary"=$2 WHERE id = $3 RETURNING ...
func (s *JobStore) Update(ctx context.Context, id int64, set sqlbuilder.UpdateSet) (domain.Job, error) {
	frag, err := sqlbuilder.PartialUpdate(set, jobColumns)
	if err != nil {
		return domain.Job{}, err
	}

	query := `UPDATE jobs SET ` + frag.SQL +
		` WHERE id = ` + sqlbuilder.Placeholder(frag.Next()) +
		` RETURNING ` + jobReturning
	args := append(frag.Args, id)

	j, err := scanJob(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, port.NotFound("没有该职位 (no job): %d", id)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("更新职位 %d 失败: %w", id, err)
	}
	slog.Debug("[Store] 职位已更新", "id", id, "fields", set.Names())
	return j, nil
}

// Remove 删除职位
func (s *JobStore) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("删除职位 %d 失败: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取删除结果失败: %w", err)
	}
	if n == 0 {
		return port.NotFound("没有该职位 (no job): %d", id)
	}
	return nil
}

func scanJob(r rowScanner) (domain.Job, error) {
	var (
		j      domain.Job
		salary sql.NullInt64
		equity sql.NullFloat64
	)
	if err := r.Scan(&j.ID, &j.Title, &salary, &equity, &j.CompanyHandle); err != nil {
		return domain.Job{}, err
	}
	j.Salary = intPtr(salary)
	j.Equity = floatPtr(equity)
	return j, nil
}
