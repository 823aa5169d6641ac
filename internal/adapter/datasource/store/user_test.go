// file: internal/adapter/datasource/store/user_test.go
package store

import (
	"context"
	"errors"
	"testing"

	"Jobly/internal/adapter/datasource/sqlbuilder"
	"Jobly/internal/core/domain"
	"Jobly/internal/core/port"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAuthenticate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Users.Authenticate(ctx, "u1", "password1")
	require.NoError(t, err)
	assert.Equal(t, domain.User{Username: "u1", FirstName: "U1F", LastName: "U1L", Email: "u1@email.com"}, u)

	_, err = s.Users.Authenticate(ctx, "u1", "wrong")
	assert.True(t, errors.Is(err, port.ErrUnauthorized))

	_, err = s.Users.Authenticate(ctx, "nope", "password1")
	assert.True(t, errors.Is(err, port.ErrUnauthorized))
}

func TestUserRegister_Duplicate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Users.Register(context.Background(), domain.NewUser{
		Username: "u1", Password: "password", FirstName: "F", LastName: "L", Email: "x@y.com",
	})
	assert.True(t, errors.Is(err, port.ErrBadRequest))
}

func TestUserFindAllAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	users, err := s.Users.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].Username)
	assert.True(t, users[1].IsAdmin)

	n, err := s.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Users.Get(ctx, "nope")
	assert.True(t, errors.Is(err, port.ErrNotFound))
}

func TestUserUpdate_TranslatesColumnsAndRehashesPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	set := sqlbuilder.UpdateSet{}.
		Set("firstName", "Aria").
		Set("password", "new-password").
		Set("isAdmin", true)

	u, err := s.Users.Update(ctx, "u1", set)
	require.NoError(t, err)
	assert.Equal(t, "Aria", u.FirstName)
	assert.Equal(t, "U1L", u.LastName)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, "new-password", set[1].Value, "调用方的更新集不应被修改")

	_, err = s.Users.Authenticate(ctx, "u1", "new-password")
	assert.NoError(t, err)
	_, err = s.Users.Authenticate(ctx, "u1", "password1")
	assert.True(t, errors.Is(err, port.ErrUnauthorized))
}

func TestUserRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users.Remove(ctx, "u1"))
	assert.True(t, errors.Is(s.Users.Remove(ctx, "u1"), port.ErrNotFound))
}

func TestUserUpdate_PostgresStatement(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE users SET "first_name"=$1, "last_name"=$2 WHERE username = $3 RETURNING username, first_name, last_name, email, is_admin`).
		WithArgs("Aria", "Stark", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"username", "first_name", "last_name", "email", "is_admin"}).
			AddRow("u1", "Aria", "Stark", "u1@email.com", false))

	u, err := s.Users.Update(context.Background(), "u1",
		sqlbuilder.UpdateSet{}.Set("firstName", "Aria").Set("lastName", "Stark"))
	require.NoError(t, err)
	assert.Equal(t, "Stark", u.LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
