package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Account        *handlers.AccountHandler
	Management     *handlers.ManagementHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	admin := auth.RequireAuthority(domain.AuthorityAdmin)

	api := app.Group("/api")
	api.Post("/authenticate", cfg.Account.Authenticate)
	api.Post("/account/activate", cfg.Account.Activate)

	users := api.Group("/users")
	users.Get("", cfg.Users.ListUsers)
	users.Get("/authorities", cfg.AuthMiddleware.Handle, admin, cfg.Users.ListAuthorities)
	users.Get("/:username", cfg.Users.GetUser)
	users.Post("", cfg.AuthMiddleware.Handle, admin, cfg.Users.CreateUser)
	users.Put("", cfg.AuthMiddleware.Handle, admin, cfg.Users.UpdateUser)
	users.Delete("/:username", cfg.AuthMiddleware.Handle, admin, cfg.Users.DeleteUser)

	management := app.Group("/management", cfg.AuthMiddleware.Handle, admin)
	management.Get("/metrics", cfg.Management.Metrics)
}
