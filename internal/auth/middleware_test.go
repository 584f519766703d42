package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

func newGuardedApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()

	store, err := repository.NewMemoryStore()
	require.NoError(t, err)
	users := store.Users()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, users.Create(ctx, &domain.User{ID: "1", Username: "root", Email: "r@x.com", Activated: true, CreatedAt: now}, []string{domain.AuthorityAdmin}))
	require.NoError(t, users.Create(ctx, &domain.User{ID: "2", Username: "joe", Email: "j@x.com", Activated: true, CreatedAt: now}, []string{domain.AuthorityUser}))
	require.NoError(t, users.Create(ctx, &domain.User{ID: "3", Username: "new", Email: "n@x.com", CreatedAt: now}, []string{domain.AuthorityAdmin}))

	tokens := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tokens, users)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/admin", mw.Handle, RequireAuthority(domain.AuthorityAdmin), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Username)
	})
	app.Get("/open", RequireAuthority(domain.AuthorityUser), func(c *fiber.Ctx) error { return nil })
	return app, tokens
}

func TestAuthMiddlewareAndRequireAuthority(t *testing.T) {
	app, tokens := newGuardedApp(t)

	token := func(username string) string {
		s, _, err := tokens.GenerateToken(username)
		require.NoError(t, err)
		return "Bearer " + s
	}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"admin allowed", "/admin", token("root"), http.StatusOK},
		{"non-admin forbidden", "/admin", token("joe"), http.StatusForbidden},
		{"inactive user", "/admin", token("new"), http.StatusUnauthorized},
		{"unknown user", "/admin", token("ghost"), http.StatusUnauthorized},
		{"missing header", "/admin", "", http.StatusUnauthorized},
		{"wrong scheme", "/admin", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/admin", "Bearer abc", http.StatusUnauthorized},
		{"policy without principal", "/open", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuthMiddlewareResolvesAuthoritiesPerRequest(t *testing.T) {
	store, err := repository.NewMemoryStore()
	require.NoError(t, err)
	users := store.Users()
	ctx := context.Background()
	joe := &domain.User{ID: "2", Username: "joe", Email: "j@x.com", Activated: true, CreatedAt: time.Now()}
	require.NoError(t, users.Create(ctx, joe, []string{domain.AuthorityUser}))

	tokens := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tokens, users)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/admin", mw.Handle, RequireAuthority(domain.AuthorityAdmin), func(c *fiber.Ctx) error { return nil })

	token, _, err := tokens.GenerateToken("joe")
	require.NoError(t, err)
	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusForbidden, call())

	require.NoError(t, users.Update(ctx, joe, []string{domain.AuthorityAdmin, domain.AuthorityUser}))
	assert.Equal(t, http.StatusOK, call(), "granted role applies to an issued token")

	require.NoError(t, users.Update(ctx, joe, []string{domain.AuthorityUser}))
	assert.Equal(t, http.StatusForbidden, call(), "revoked role applies to an issued token")
}
