package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/service"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the store: schema, indexes, authorities and the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Driver == config.StoreDriverMemory {
		return fmt.Errorf("migrate needs a persistent store; STORE_DRIVER is %q", cfg.Store.Driver)
	}
	// Schema migrations run as part of opening a Postgres store.
	cfg.Postgres.RunMigrations = true

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:      st.users,
		AuthorityRepo: st.authorities,
		Logger:        logger,
	})
	if err := authService.EnsureAuthorities(ctx); err != nil {
		return fmt.Errorf("ensure authorities: %w", err)
	}
	if err := authService.EnsureAdmin(ctx); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))
	return nil
}
