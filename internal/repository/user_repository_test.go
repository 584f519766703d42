package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgReadError(t *testing.T) {
	assert.ErrorIs(t, mapPgReadError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapPgReadError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	// users.id is a UUID column, so a lookup by "missing" fails to cast.
	badID := &pgconn.PgError{Code: pgInvalidTextRepresentation, Message: `invalid input syntax for type uuid: "missing"`}
	assert.ErrorIs(t, mapPgReadError(badID), ErrNotFound)

	other := &pgconn.PgError{Code: "57014"}
	assert.Equal(t, error(other), mapPgReadError(other))

	boom := errors.New("connection reset")
	assert.Equal(t, boom, mapPgReadError(boom))
}

func TestMapPgError(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"users_username_key", FieldUsername},
		{"users_email_key", FieldEmail},
		{"users_activation_key_key", FieldActivationKey},
	}
	for _, tt := range tests {
		err := mapPgError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: tt.constraint})
		var dup *DuplicateError
		if assert.ErrorAs(t, err, &dup, tt.constraint) {
			assert.Equal(t, tt.field, dup.Field)
		}
		assert.ErrorIs(t, err, ErrDuplicate)
	}

	plain := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(plain), mapPgError(plain))
}
