package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vodhub/internal/api/http/handlers"
	"github.com/spec-kit/vodhub/internal/auth"
	"github.com/spec-kit/vodhub/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	System *handlers.SystemHandler
	Auth   *handlers.AuthHandler
	Admin  *handlers.AdminHandler
}

// RegisterRoutes wires HTTP routes. Authentication itself is enforced by the gate middleware;
// the groups here only add role checks.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get(auth.WarningPath, cfg.System.Warning)

	api := app.Group("/api")
	api.Get("/server-config", cfg.System.ServerConfig)
	api.Post("/login", cfg.Auth.Login)
	api.Post("/refresh", cfg.Auth.Refresh)
	api.Post("/logout", cfg.Auth.Logout)

	api.Get("/me", cfg.Auth.Me)
	api.Post("/change-password", cfg.Auth.ChangePassword)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleOwner, domain.RoleAdmin), auth.RequireNamedUser())
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Post("/users/:username/ban", cfg.Admin.Ban)
	admin.Get("/stats", cfg.Admin.Stats)
}
