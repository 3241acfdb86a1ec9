package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func TestUserCreateNormalizesEmail(t *testing.T) {
	r, mock := newUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, password_hash, role) VALUES (?,?,?)")).
		WithArgs("ann@example.com", sqlmock.AnyArg(), model.RoleCustomer).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := r.Create(context.Background(), "  Ann@Example.com ", "s3cret-pass", model.RoleCustomer, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateRejectsInput(t *testing.T) {
	r, _ := newUserRepo(t)
	_, err := r.Create(context.Background(), "", "pw", model.RoleCustomer, 4)
	assert.True(t, domain.IsValidation(err))
	_, err = r.Create(context.Background(), "a@b.c", "pw", "ADMIN", 4)
	assert.True(t, domain.IsValidation(err))
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	r, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: errDupEntry, Message: "Duplicate entry"})

	_, err := r.Create(context.Background(), "ann@example.com", "pw", model.RoleOperator, 4)
	assert.True(t, domain.IsConflict(err))
}

func TestGetUserByEmail(t *testing.T) {
	r, mock := newUserRepo(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cols := []string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "ann@example.com", "hash", model.RoleCustomer, true, now, now))
	u, err := r.GetUserByEmail(context.Background(), "ANN@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 3, u.ID)
	assert.True(t, u.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = r.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.True(t, domain.IsNotFound(err))
}
