// file: internal/adapter/datasource/store/main_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"

	"Jobly/internal/adapter/datasource/sqlbuilder"
	"Jobly/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func ptr[T any](v T) *T { return &v }

// newTestStore 在临时目录中创建一个已建表并写入种子数据的 SQLite 数据库
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := Open(ctx, Options{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "jobly.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitTables(ctx, db, dialect))
	s := New(db, dialect, bcrypt.MinCost)
	seed(t, s)
	return s
}

// seed 写入 c1/c2/c3 三家公司、三个职位以及 u1/u2 两个用户
func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	for _, c := range []domain.NewCompany{
		{Handle: "c1", Name: "C1", Description: "Desc1", NumEmployees: ptr(1), LogoURL: ptr("http://c1.img")},
		{Handle: "c2", Name: "C2", Description: "Desc2", NumEmployees: ptr(2), LogoURL: ptr("http://c2.img")},
		{Handle: "c3", Name: "C3", Description: "Desc3", NumEmployees: ptr(3)},
	} {
		_, err := s.Companies.Create(ctx, c)
		require.NoError(t, err)
	}

	for _, j := range []domain.NewJob{
		{Title: "Software Engineer", Salary: ptr(100000), Equity: ptr(0.1), CompanyHandle: "c1"},
		{Title: "Product Manager", Salary: ptr(90000), Equity: ptr(0.0), CompanyHandle: "c1"},
		{Title: "Data Analyst", Salary: ptr(60000), CompanyHandle: "c2"},
	} {
		_, err := s.Jobs.Create(ctx, j)
		require.NoError(t, err)
	}

	for _, u := range []domain.NewUser{
		{Username: "u1", Password: "password1", FirstName: "U1F", LastName: "U1L", Email: "u1@email.com"},
		{Username: "u2", Password: "password2", FirstName: "U2F", LastName: "U2L", Email: "u2@email.com", IsAdmin: true},
	} {
		_, err := s.Users.Register(ctx, u)
		require.NoError(t, err)
	}
}

// newMockStore 返回一个 Postgres 方言、按原文精确匹配 SQL 的 sqlmock Store
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, sqlbuilder.Postgres, bcrypt.MinCost), mock
}

