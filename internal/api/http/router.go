package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/mortgage-service/internal/api/http/handlers"
	"github.com/spec-kit/mortgage-service/internal/auth"
	"github.com/spec-kit/mortgage-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Applications   *handlers.ApplicationsHandler
	Review         *handlers.ReviewHandler
	AuthMiddleware *auth.AuthMiddleware
	Idempotency    fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/officers/login", cfg.Users.LoginOfficer)

	applications := app.Group("/applications", cfg.AuthMiddleware.Handle)
	if cfg.Idempotency != nil {
		applications.Use(cfg.Idempotency)
	}
	applications.Post("", auth.RequireBorrower(), cfg.Applications.Create)
	applications.Get("", auth.RequireBorrower(), cfg.Applications.List)
	applications.Get("/:id", auth.RequireAnyRole(), cfg.Applications.Get)
	applications.Patch("/:id", auth.RequireBorrower(), cfg.Applications.UpdateDraft)
	applications.Post("/:id/status", auth.RequireAnyRole(), cfg.Applications.UpdateStatus)
	applications.Post("/:id/withdraw", auth.RequireBorrower(), cfg.Applications.Withdraw)

	review := app.Group("/review", cfg.AuthMiddleware.Handle,
		auth.RequireOfficerRole(domain.OfficerRoleLoanOfficer, domain.OfficerRoleAdmin))
	review.Get("/applications", cfg.Review.List)
	review.Get("/applications/:id", cfg.Review.Get)
	review.Post("/applications/:id/status", cfg.Review.UpdateStatus)
}
