package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/mail"
	"github.com/spec-kit/user-service/internal/repository"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message{}, m.sent...)
}

type testEnv struct {
	cfg       config.Config
	store     *repository.MemoryStore
	users     repository.UserRepository
	mailer    *recordingMailer
	validator *UniquenessValidator
	userSvc   *UserService
	authSvc   *AuthService
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{Name: "userManagementApp", BaseURL: "http://localhost:8080/"},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
		},
		Admin: config.AdminConfig{Username: "Admin", Password: "admin-pass", Email: "admin@localhost"},
		Users: config.UsersConfig{Authorities: []string{"ROLE_ADMIN", "ROLE_USER"}},
		Notification: config.NotificationConfig{
			EmailFrom: "noreply@example.com",
			Transport: config.MailTransportLog,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := repository.NewMemoryStore()
	require.NoError(t, err)

	cfg := testConfig()
	users := store.Users()
	mailer := &recordingMailer{}
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(cfg, NotificationDependencies{
		Dispatcher: dispatcher,
		Mailer:     mailer,
		Logger:     zap.NewNop(),
	}).RegisterHandlers()

	validator := NewUniquenessValidator(users)
	env := &testEnv{
		cfg:       cfg,
		store:     store,
		users:     users,
		mailer:    mailer,
		validator: validator,
		userSvc: NewUserService(cfg, UserDependencies{
			UserRepo:      users,
			AuthorityRepo: store.Authorities(),
			Validator:     validator,
			Dispatcher:    dispatcher,
		}),
		authSvc: NewAuthService(cfg, AuthDependencies{
			UserRepo:      users,
			AuthorityRepo: store.Authorities(),
			Dispatcher:    dispatcher,
			Logger:        zap.NewNop(),
		}),
	}
	require.NoError(t, env.authSvc.EnsureAuthorities(context.Background()))
	return env
}

func strPtr(s string) *string { return &s }
