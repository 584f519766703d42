package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/persistence"
	"github.com/spec-kit/user-service/internal/repository"
)

// stores holds the repositories for the configured driver plus what is
// needed to probe and release them.
type stores struct {
	users       repository.UserRepository
	authorities repository.AuthorityRepository
	pingers     map[string]handlers.Pinger
	closers     []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured store and, when Redis is configured,
// wraps the user repository with the authority cache.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{pingers: map[string]handlers.Pinger{}}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				s.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		s.users = repository.NewUserRepository(pg.PoolHandle())
		s.authorities = repository.NewAuthorityRepository(pg.PoolHandle())
		s.pingers["postgres"] = pg

	case config.StoreDriverMongo:
		mg, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		s.closers = append(s.closers, func() { mg.Close(context.Background()) })
		if err := repository.EnsureMongoIndexes(ctx, mg.Database); err != nil {
			s.Close()
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		s.users = repository.NewMongoUserRepository(mg.Database)
		s.authorities = repository.NewMongoAuthorityRepository(mg.Database)
		s.pingers["mongo"] = mg

	default:
		mem, err := repository.NewMemoryStore()
		if err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
		logger.Warn("using in-memory store; data is lost on restart")
		s.users = mem.Users()
		s.authorities = mem.Authorities()
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	if rdb.Enabled() {
		s.closers = append(s.closers, rdb.Close)
		s.pingers["redis"] = rdb
		s.users = repository.NewCachedUserRepository(s.users, rdb.Client, cfg.Redis.AuthorityCacheTTL(), logger)
	}
	return s, nil
}
