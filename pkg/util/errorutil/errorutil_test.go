package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	wrapped := fmt.Errorf("create: %w", NewUserExists())
	de := ToDomainError(wrapped)
	assert.Equal(t, CodeUserExists, de.Code)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)

	plain := ToDomainError(errors.New("db down"))
	assert.Equal(t, CodeInternal, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)
	assert.EqualError(t, plain, "internal server error: db down")
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewEmailExists(), CodeEmailExists))
	assert.True(t, HasCode(NewIDExists(), CodeIDExists))
	assert.False(t, HasCode(NewEmailExists(), CodeUserExists))
	assert.False(t, HasCode(errors.New("x"), CodeUserExists))

	nf := ToDomainError(NewNotFound("user", nil))
	assert.Equal(t, "user not found", nf.Message)
	assert.NotNil(t, nf.Details)
}
