package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewBookingRepository(pool))
	assert.NotNil(t, NewCatalogRepository(pool))
	assert.NotNil(t, NewUserRepository(pool))
}

func TestUniqueConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraintActiveLabBooking}

	name, ok := uniqueConstraint(fmt.Errorf("insert: %w", pgErr))
	assert.True(t, ok)
	assert.Equal(t, constraintActiveLabBooking, name)

	_, ok = uniqueConstraint(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = uniqueConstraint(errors.New("boom"))
	assert.False(t, ok)

	_, ok = uniqueConstraint(nil)
	assert.False(t, ok)
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(pgx.ErrNoRows), ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, notFound(other))
}

func TestInTxRequiresBeginner(t *testing.T) {
	repo := &PGBookingRepository{db: nil}
	err := repo.InTx(t.Context(), func(BookingRepository) error { return nil })
	assert.Error(t, err)
}
