// file: internal/adapter/datasource/store/user.go
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

	"golang.org/x/crypto/bcrypt"
)

// userColumns 是用户的逻辑字段到物理列的映射
var userColumns = sqlbuilder.ColumnMap{
	"firstName": "first_name",
	"lastName":  "last_name",
	"isAdmin":   "is_admin",
}

const userReturning = `username, first_name, last_name, email, is_admin`

// UserStore 负责 users 表的读写与密码校验
type UserStore struct {
	db         *sql.DB
	bcryptCost int
}

func NewUserStore(db *sql.DB, bcryptCost int) *UserStore {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, bcryptCost: bcryptCost}
}

// Authenticate 校验用户名和密码。任何不匹配都返回同一个 Unauthorized 错误。
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	var (
		u    domain.User
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+userReturning+`, password FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.FirstName, &u.LastName, &u.Email, &u.IsAdmin, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, port.Unauthorized("用户名或密码错误 (invalid username/password)")
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("查询用户 '%s' 失败: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return domain.User{}, port.Unauthorized("用户名或密码错误 (invalid username/password)")
	}
	return u, nil
}

// Register 创建用户，用户名重复时返回 BadRequest。
func (s *UserStore) Register(ctx context.Context, in domain.NewUser) (domain.User, error) {
	var existing string
	err := s.db.QueryRowContext(ctx, `SELECT username FROM users WHERE username = $1`, in.Username).Scan(&existing)
	switch {
	case err == nil:
		return domain.User{}, port.BadRequest("用户名重复 (duplicate username): %s", in.Username)
	case !errors.Is(err, sql.ErrNoRows):
		return domain.User{}, fmt.Errorf("检查用户 '%s' 是否存在失败: %w", in.Username, err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password, first_name, last_name, email, is_admin)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING `+userReturning,
		in.Username, hash, in.FirstName, in.LastName, in.Email, in.IsAdmin,
	)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("插入用户 '%s' 失败: %w", in.Username, err)
	}
	return u, nil
}

// FindAll 按用户名排序列出所有用户
func (s *UserStore) FindAll(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userReturning+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("查询用户列表失败: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描用户数据失败: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历用户结果集失败: %w", err)
	}
	return users, nil
}

func (s *UserStore) Get(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userReturning+` FROM users WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, port.NotFound("没有该用户 (no user): %s", username)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("查询用户 '%s' 失败: %w", username, err)
	}
	return u, nil
}

// Update 对用户做部分更新。set 中的 password 会先被哈希再写入，调用方的 set 不会被修改。
func (s *UserStore) Update(ctx context.Context, username string, set sqlbuilder.UpdateSet) (domain.User, error) {
	fields := make(sqlbuilder.UpdateSet, len(set))
	copy(fields, set)
	for i, f := range fields {
		if f.Name != "password" {
			continue
		}
		plain, ok := f.Value.(string)
		if !ok {
			return domain.User{}, port.DataError("密码必须是字符串")
		}
		hash, err := s.hash(plain)
		if err != nil {
			return domain.User{}, err
		}
		fields[i].Value = hash
	}

	frag, err := sqlbuilder.PartialUpdate(fields, userColumns)
	if err != nil {
		return domain.User{}, err
	}

	query := `UPDATE users SET ` + frag.SQL +
		` WHERE username = ` + sqlbuilder.Placeholder(frag.Next()) +
		` RETURNING ` + userReturning
	args := append(frag.Args, username)

	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, port.NotFound("没有该用户 (no user): %s", username)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("更新用户 '%s' 失败: %w", username, err)
	}
	slog.Debug("[Store] 用户已更新", "username", username, "fields", set.Names())
	return u, nil
}

func (s *UserStore) Remove(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("删除用户 '%s' 失败: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取删除结果失败: %w", err)
	}
	if n == 0 {
		return port.NotFound("没有该用户 (no user): %s", username)
	}
	return nil
}

// Count 返回用户总数，用于首次启动时判断是否需要创建管理员。
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("统计用户数量失败: %w", err)
	}
	return n, nil
}

func (s *UserStore) hash(password string) (string, error) {
	if password == "" {
		return "", port.BadRequest("密码不能为空")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("生成密码哈希失败: %w", err)
	}
	return string(h), nil
}

func scanUser(r rowScanner) (domain.User, error) {
	var u domain.User
	if err := r.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Email, &u.IsAdmin); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
