package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/user-service/internal/api/http"
	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/mail"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/service"
	"github.com/spec-kit/user-service/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return err
	}
	defer st.Close()

	mailer, closeMailer, err := newMailer(cfg.Notification, logger)
	if err != nil {
		logger.Error("failed to init mailer", zap.Error(err))
		return err
	}
	defer closeMailer()

	mailWorker := worker.NewNotificationWorker(cfg.Notification.QueueSize, 30*time.Second, logger)
	mailWorker.Start(cfg.Notification.Workers)
	defer mailWorker.Stop()

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(*cfg, service.NotificationDependencies{
		Dispatcher: dispatcher,
		Mailer:     mailer,
		Worker:     mailWorker,
		Logger:     logger,
	})
	notificationService.RegisterHandlers()

	validator := service.NewUniquenessValidator(st.users)
	userService := service.NewUserService(*cfg, service.UserDependencies{
		UserRepo:      st.users,
		AuthorityRepo: st.authorities,
		Validator:     validator,
		Dispatcher:    dispatcher,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:      st.users,
		AuthorityRepo: st.authorities,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	if err := authService.EnsureAuthorities(ctx); err != nil {
		logger.Error("failed to ensure authorities", zap.Error(err))
		return err
	}
	if err := authService.EnsureAdmin(ctx); err != nil {
		logger.Error("failed to ensure admin", zap.Error(err))
		return err
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), st.users)

	metrics := observability.NewMetrics()
	alerts := handlers.NewAlerts(cfg.App.Name)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), alerts)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, st.pingers),
		Users:          handlers.NewUsersHandler(userService, validator, alerts, logger),
		Account:        handlers.NewAccountHandler(authService),
		Management:     handlers.NewManagementHandler(metrics),
		AuthMiddleware: authMiddleware,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			return err
		}
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}

func newMailer(cfg config.NotificationConfig, logger *zap.Logger) (mail.Mailer, func(), error) {
	if cfg.Transport == config.MailTransportAMQP {
		m, err := mail.NewAMQPMailer(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("mail transport: amqp", zap.String("queue", cfg.AMQPQueue))
		return m, m.Close, nil
	}
	return mail.NewLogMailer(logger), func() {}, nil
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
