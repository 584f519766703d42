package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

func TestManagedUserRequestValidate(t *testing.T) {
	valid := func() ManagedUserRequest {
		return ManagedUserRequest{Username: "alice", Email: "a@x.com", LangKey: "en"}
	}

	tests := []struct {
		name   string
		mutate func(*ManagedUserRequest)
		field  string
	}{
		{"valid", func(*ManagedUserRequest) {}, ""},
		{"empty username", func(r *ManagedUserRequest) { r.Username = "" }, "username"},
		{"bad username chars", func(r *ManagedUserRequest) { r.Username = "al ice" }, "username"},
		{"long username", func(r *ManagedUserRequest) { r.Username = strings.Repeat("a", 51) }, "username"},
		{"short email", func(r *ManagedUserRequest) { r.Email = "a@b" }, "email"},
		{"malformed email", func(r *ManagedUserRequest) { r.Email = "not-an-email" }, "email"},
		{"long first name", func(r *ManagedUserRequest) { r.FirstName = strings.Repeat("x", 51) }, "first_name"},
		{"long image url", func(r *ManagedUserRequest) { r.ImageURL = strings.Repeat("x", 257) }, "image_url"},
		{"bad lang key", func(r *ManagedUserRequest) { r.LangKey = "e" }, "lang_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
			assert.Contains(t, apperrors.ToDomainError(err).Details, tt.field)
		})
	}
}

func TestHasID(t *testing.T) {
	empty := ""
	id := "abc"
	assert.False(t, (&ManagedUserRequest{}).HasID())
	assert.False(t, (&ManagedUserRequest{ID: &empty}).HasID())
	assert.True(t, (&ManagedUserRequest{ID: &id}).HasID())
}

func TestToNewUser(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	user := ToNewUser(&ManagedUserRequest{Username: "Alice", Email: " a@x.com ", FirstName: "A"}, "admin", now)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, DefaultLangKey, user.LangKey)
	assert.Equal(t, "admin", user.CreatedBy)
	assert.Equal(t, now, user.CreatedAt)
	assert.Equal(t, now, user.LastModifiedAt)
	assert.Empty(t, user.ID)
}

func TestApplyToUser(t *testing.T) {
	key := "k"
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	existing := domain.User{
		ID:            "1",
		Username:      "alice",
		Email:         "a@x.com",
		LangKey:       "fr",
		ActivationKey: &key,
		PasswordHash:  "hash",
		CreatedBy:     "admin",
		CreatedAt:     created,
	}

	updated := ApplyToUser(&ManagedUserRequest{Username: "Alicia", Email: "new@x.com", Activated: true}, existing, "editor", now)

	assert.Equal(t, "1", updated.ID)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, "new@x.com", updated.Email)
	assert.Equal(t, "fr", updated.LangKey, "empty lang key keeps the current one")
	assert.True(t, updated.Activated)
	assert.Nil(t, updated.ActivationKey)
	assert.Equal(t, "hash", updated.PasswordHash)
	assert.Equal(t, "admin", updated.CreatedBy)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, "editor", updated.LastModifiedBy)
	assert.Equal(t, now, updated.LastModifiedAt)

	assert.Equal(t, "alice", existing.Username, "input is not modified")
	assert.NotNil(t, existing.ActivationKey)
}

func TestUserResponses(t *testing.T) {
	user := &domain.User{ID: "1", Username: "alice", PasswordHash: "secret"}

	plain := NewUserResponse(user)
	assert.Nil(t, plain.Authorities)

	withRoles := NewUserResponseWithAuthorities(&domain.UserWithAuthorities{User: user, Authorities: []string{"ROLE_USER"}})
	assert.Equal(t, []string{"ROLE_USER"}, withRoles.Authorities)
	assert.Equal(t, "alice", withRoles.Username)
}
