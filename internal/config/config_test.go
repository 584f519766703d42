package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("USER_AUTHORITIES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, "userManagementApp", cfg.App.Name)
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, cfg.Users.Authorities)
	assert.Equal(t, MailTransportLog, cfg.Notification.Transport)
	assert.Equal(t, time.Hour, cfg.Redis.AuthorityCacheTTL())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoad_PostgresWhenDSNSet(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/users")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("USER_AUTHORITIES", "ROLE_ADMIN, ROLE_USER ,ROLE_AUDITOR,")
	t.Setenv("AUTHORITY_CACHE_TTL_SECONDS", "90")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, "127.0.0.1:9090", cfg.App.Addr())
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER", "ROLE_AUDITOR"}, cfg.Users.Authorities)
	assert.Equal(t, 90*time.Second, cfg.Redis.AuthorityCacheTTL())
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "cassandra")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("POSTGRES_DSN", "")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("unknown mail transport", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("MAIL_TRANSPORT", "pigeon")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("bad redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "x")
		_, err := Load()
		assert.Error(t, err)
	})
}
