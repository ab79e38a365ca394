package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mbarlow/lectern-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		t.Parallel()

		err := MapError(fmt.Errorf("query: %w", sql.ErrNoRows))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		t.Parallel()

		pgErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "contents_pkey"}
		err := MapError(fmt.Errorf("insert: %w", pgErr))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("foreign key violation maps to invalid entity", func(t *testing.T) {
		t.Parallel()

		pgErr := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "keywords_type_id_fkey"}
		err := MapError(fmt.Errorf("insert: %w", pgErr))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), "keywords_type_id_fkey")
	})

	t.Run("unmapped errors pass through", func(t *testing.T) {
		t.Parallel()

		sentinel := errors.New("connection refused")
		assert.ErrorIs(t, MapError(sentinel), sentinel)
	})
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	unique := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: uniqueViolationCode})
	fk := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: foreignKeyViolationCode})

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(unique))

	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrTaskNotFound))
	assert.False(t, IsNotFoundError(errors.New("other")))
}

func TestNewContentStore(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewContentStore(nil, nil)
	})
}
