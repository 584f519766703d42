package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

func TestActivateThenAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.userSvc.CreateUser(ctx, "admin", &dto.ManagedUserRequest{Username: "ivy", Email: "i@x.com"})
	require.NoError(t, err)
	key := *user.ActivationKey

	_, _, err = env.authSvc.Authenticate(ctx, "ivy", "secret-pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "inactive user must not log in")

	_, err = env.authSvc.ActivateRegistration(ctx, key, "abc")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	activated, err := env.authSvc.ActivateRegistration(ctx, key, "secret-pw")
	require.NoError(t, err)
	assert.True(t, activated.Activated)
	assert.Nil(t, activated.ActivationKey)

	_, err = env.authSvc.ActivateRegistration(ctx, key, "secret-pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "keys are single use")

	token, exp, err := env.authSvc.Authenticate(ctx, "IVY", "secret-pw")
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := env.authSvc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ivy", claims.Subject)

	_, _, err = env.authSvc.Authenticate(ctx, "ivy", "wrong")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, _, err = env.authSvc.Authenticate(ctx, "nobody", "secret-pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.authSvc.EnsureAdmin(ctx))
	require.NoError(t, env.authSvc.EnsureAdmin(ctx))

	admin, err := env.users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.Activated)

	authorities, err := env.users.GetAuthorities(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.AuthorityAdmin, domain.AuthorityUser}, authorities)

	_, _, err = env.authSvc.Authenticate(ctx, "admin", "admin-pass")
	assert.NoError(t, err)
}

func TestEnsureAdmin_SkippedWithoutPassword(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.cfg
	cfg.Admin.Password = ""
	svc := NewAuthService(cfg, AuthDependencies{UserRepo: env.users, AuthorityRepo: env.store.Authorities()})

	require.NoError(t, svc.EnsureAdmin(context.Background()))
	taken, err := env.validator.IsUsernameTaken(context.Background(), "admin")
	require.NoError(t, err)
	assert.False(t, taken)
}
