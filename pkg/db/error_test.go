package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_users_email" (SQLSTATE 23505)`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("create user: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(&pq.Error{Code: "23505"}))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "40001"}))
}

func TestIsForeignKeyErr(t *testing.T) {
	assert.False(t, IsForeignKeyErr(nil))
	assert.True(t, IsForeignKeyErr(errors.New("FOREIGN KEY constraint failed")))
	assert.True(t, IsForeignKeyErr(errors.New(`insert or update on table "orders" violates foreign key constraint`)))
	assert.False(t, IsForeignKeyErr(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, IsForeignKeyErr(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyErr(fmt.Errorf("insert: %w", &pq.Error{Code: "23503"})))
}
