// Package service 负责 JWT 签发/校验、认证中间件与账户管理
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Jobly/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

/* ---------- JWT Handling ---------- */

const tokenIssuer = "Jobly"

// Claim 定义 JWT 的载荷结构
type Claim struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// ErrInvalidToken 表示 JWT 无效、过期或解析失败。
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService 负责签发与解析 HS256 令牌
type TokenService struct {
	key []byte
	ttl time.Duration
}

// NewTokenService 创建令牌服务。ttl <= 0 时有效期为 24 小时。
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("JWT 密钥不能为空")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{key: []byte(secret), ttl: ttl}, nil
}

// GenToken 为用户生成一个新的 JWT
func (ts *TokenService) GenToken(u domain.User) (string, error) {
	now := time.Now()
	claims := Claim{
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("签名 JWT 失败: %w", err)
	}
	return signed, nil
}

// ParseToken 解析并验证 JWT 字符串
func (ts *TokenService) ParseToken(tokenString string) (*Claim, error) {
	claims := &Claim{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return ts.key, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w (detail: %v)", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

/* ---------- Context Helpers for Claims ---------- */

type ctxKey int

const claimKey ctxKey = 0

func ContextWithClaim(ctx context.Context, c *Claim) context.Context {
	return context.WithValue(ctx, claimKey, c)
}

// ClaimFromContext 返回请求上下文中的 Claim，未认证时返回 nil。
func ClaimFromContext(ctx context.Context) *Claim {
	claims, _ := ctx.Value(claimKey).(*Claim)
	return claims
}

func ClaimFrom(r *http.Request) *Claim {
	return ClaimFromContext(r.Context())
}

/* ---------- 中间件 (Middleware) ---------- */

// UserLookup 是认证中间件确认用户仍然存在所需的最小接口
type UserLookup interface {
	Get(ctx context.Context, username string) (domain.User, error)
}

// Authenticator 校验 Bearer 令牌，并确认令牌中的用户仍然存在。
// 查询结果缓存在带过期时间的 LRU 中，用户被修改或删除时调用 Forget。
type Authenticator struct {
	tokens *TokenService
	users  UserLookup
	cache  *lru.LRU[string, domain.User]
}

// NewAuthenticator 创建 Authenticator 实例
func NewAuthenticator(tokens *TokenService, users UserLookup, cacheSize int, cacheTTL time.Duration) *Authenticator {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Authenticator{
		tokens: tokens,
		users:  users,
		cache:  lru.NewLRU[string, domain.User](cacheSize, nil, cacheTTL),
	}
}

// Forget 使某个用户的缓存失效
func (a *Authenticator) Forget(username string) {
	a.cache.Remove(username)
}

func (a *Authenticator) lookup(ctx context.Context, username string) (domain.User, bool) {
	if u, ok := a.cache.Get(username); ok {
		return u, true
	}
	u, err := a.users.Get(ctx, username)
	if err != nil {
		return domain.User{}, false
	}
	a.cache.Add(username, u)
	return u, true
}

// Middleware 是一个JWT认证中间件。
// 令牌缺失或无效时不拦截请求，只是不附加 Claim，由后续的权限中间件决定是否拒绝。
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString != "" {
				claims, err := a.tokens.ParseToken(tokenString)
				if err == nil {
					if u, ok := a.lookup(r.Context(), claims.Username); ok {
						// 以数据库中的当前角色为准
						claims.IsAdmin = u.IsAdmin
						r = r.WithContext(ContextWithClaim(r.Context(), claims))
					} else {
						slog.Warn("认证中间件: 令牌中的用户在数据库中未找到，令牌被拒绝",
							"username", claims.Username, "path", r.URL.Path, "ip", r.RemoteAddr)
					}
				} else {
					slog.Info("认证中间件: 令牌无效或已过期", "path", r.URL.Path, "ip", r.RemoteAddr, "error", err)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
