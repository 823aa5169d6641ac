// file: internal/service/account_service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"Jobly/internal/adapter/datasource/sqlbuilder"
	"Jobly/internal/core/domain"
	"Jobly/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccounts(t *testing.T, users ...domain.User) (*AccountService, *fakeUsers, *TokenService) {
	t.Helper()
	ts := newTestTokens(t)
	repo := newFakeUsers(users...)
	auth := NewAuthenticator(ts, repo, 16, time.Minute)
	return NewAccountService(repo, ts, auth), repo, ts
}

func TestAccountLogin(t *testing.T) {
	svc, _, ts := newTestAccounts(t, domain.User{Username: "u1", IsAdmin: true})
	ctx := context.Background()

	token, err := svc.Login(ctx, domain.Credentials{Username: "u1", Password: "secret"})
	require.NoError(t, err)
	claims, err := ts.ParseToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	_, err = svc.Login(ctx, domain.Credentials{Username: "u1", Password: "wrong"})
	assert.True(t, errors.Is(err, port.ErrUnauthorized))
}

func TestAccountRegister_SelfServiceCannotBecomeAdmin(t *testing.T) {
	svc, _, ts := newTestAccounts(t)
	ctx := context.Background()

	u, token, err := svc.Register(ctx, domain.NewUser{Username: "new", Password: "password", IsAdmin: true}, false)
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)
	claims, err := ts.ParseToken(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)

	u, _, err = svc.Register(ctx, domain.NewUser{Username: "boss", Password: "password", IsAdmin: true}, true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}

func TestAccountUpdateAndRemove_InvalidateAuthCache(t *testing.T) {
	svc, repo, ts := newTestAccounts(t, domain.User{Username: "u1"})
	ctx := context.Background()

	token, err := ts.GenToken(domain.User{Username: "u1"})
	require.NoError(t, err)
	require.NotNil(t, serveWithAuth(svc.auth, "Bearer "+token))

	_, err = svc.Update(ctx, "u1", sqlbuilder.UpdateSet{}.Set("isAdmin", true))
	require.NoError(t, err)
	claims := serveWithAuth(svc.auth, "Bearer "+token)
	require.NotNil(t, claims)
	assert.True(t, claims.IsAdmin, "更新后缓存应失效")

	require.NoError(t, svc.Remove(ctx, "u1"))
	assert.Nil(t, serveWithAuth(svc.auth, "Bearer "+token), "删除后令牌应失效")
	assert.Empty(t, repo.users)
}

func TestEnsureAdmin(t *testing.T) {
	svc, repo, _ := newTestAccounts(t)
	ctx := context.Background()

	_, err := svc.EnsureAdmin(ctx, "", "")
	assert.Error(t, err, "空用户表且未配置管理员时应报错")

	created, err := svc.EnsureAdmin(ctx, "admin", "password")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, repo.users["admin"].IsAdmin)

	created, err = svc.EnsureAdmin(ctx, "other", "password")
	require.NoError(t, err)
	assert.False(t, created)
}
