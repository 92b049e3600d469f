package handler

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"panes/docs"
	"panes/internal/auth"
	"panes/internal/http/middleware"
	"panes/internal/service"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	// DB is pinged by /health. Nil when metadata lives in memory.
	DB         *sql.DB
	Panes      service.PaneService
	Sweeper    service.Sweeper
	Verifier   auth.Verifier
	CleanupKey string
	// FrameAncestors is the CSP frame-ancestors source list for raw documents.
	FrameAncestors string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay free of business logic; they translate between HTTP and the pane service.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Get("/swagger/*", SwaggerUI())

	panes := app.Group("/panes")
	requireAuth := middleware.Auth(d.Verifier)

	// Static segments are registered before /:id so they are not captured as ids.
	panes.Post("/upload", requireAuth, UploadPane(d.Panes))
	panes.Post("/cleanup", middleware.CleanupKey(d.CleanupKey), TriggerCleanup(d.Sweeper))
	panes.Get("/", requireAuth, ListPanes(d.Panes))
	panes.Get("/:id", GetPane(d.Panes))
	panes.Get("/:id/raw", GetPaneRaw(d.Panes, d.FrameAncestors))
	panes.Delete("/:id", requireAuth, DeletePane(d.Panes))
}

// HealthCheck checks metadata store connectivity.
//
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// SwaggerUI serves the API docs with the request's host and scheme.
func SwaggerUI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}
