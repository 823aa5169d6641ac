// file: internal/service/account_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Jobly/internal/adapter/datasource/sqlbuilder"
	"Jobly/internal/core/domain"
)

// UserRepository 是账户服务依赖的用户存储
type UserRepository interface {
	UserLookup
	Authenticate(ctx context.Context, username, password string) (domain.User, error)
	Register(ctx context.Context, in domain.NewUser) (domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, username string, set sqlbuilder.UpdateSet) (domain.User, error)
	Remove(ctx context.Context, username string) error
	Count(ctx context.Context) (int, error)
}

// AccountService 组合用户存储、令牌签发与认证缓存，
// 保证用户被修改或删除后认证中间件不会继续使用旧数据。
type AccountService struct {
	users  UserRepository
	tokens *TokenService
	auth   *Authenticator
}

func NewAccountService(users UserRepository, tokens *TokenService, auth *Authenticator) *AccountService {
	return &AccountService{users: users, tokens: tokens, auth: auth}
}

// Login 校验凭据并签发令牌
func (s *AccountService) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	u, err := s.users.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return "", err
	}
	return s.tokens.GenToken(u)
}

// Register 创建用户并签发令牌。allowAdmin 为 false 时（自助注册）忽略 IsAdmin。
func (s *AccountService) Register(ctx context.Context, in domain.NewUser, allowAdmin bool) (domain.User, string, error) {
	if !allowAdmin {
		in.IsAdmin = false
	}
	u, err := s.users.Register(ctx, in)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := s.tokens.GenToken(u)
	if err != nil {
		return domain.User{}, "", err
	}
	slog.Info("[Account] 新用户已创建", "username", u.Username, "is_admin", u.IsAdmin)
	return u, token, nil
}

func (s *AccountService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.FindAll(ctx)
}

func (s *AccountService) Get(ctx context.Context, username string) (domain.User, error) {
	return s.users.Get(ctx, username)
}

// Update 对用户做部分更新，并使认证缓存失效。
func (s *AccountService) Update(ctx context.Context, username string, set sqlbuilder.UpdateSet) (domain.User, error) {
	u, err := s.users.Update(ctx, username, set)
	if err != nil {
		return domain.User{}, err
	}
	s.auth.Forget(username)
	return u, nil
}

// Remove 删除用户，并使认证缓存失效。
func (s *AccountService) Remove(ctx context.Context, username string) error {
	if err := s.users.Remove(ctx, username); err != nil {
		return err
	}
	s.auth.Forget(username)
	return nil
}

// EnsureAdmin 在用户表为空时创建初始管理员，已有用户时什么也不做。
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if username == "" || password == "" {
		return false, errors.New("用户表为空，但未配置初始管理员的用户名或密码")
	}

	_, err = s.users.Register(ctx, domain.NewUser{
		Username:  username,
		Password:  password,
		FirstName: "Admin",
		LastName:  "Admin",
		Email:     username + "@jobly.local",
		IsAdmin:   true,
	})
	if err != nil {
		return false, fmt.Errorf("创建初始管理员 '%s' 失败: %w", username, err)
	}
	slog.Info("✅ 已创建初始管理员", "username", username)
	return true, nil
}
