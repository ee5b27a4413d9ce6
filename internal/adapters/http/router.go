package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/propertypulse/propertypulse/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	uploadTimeout  = 60 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware())

	// Rate limiting: 300 requests per minute per IP. Map panning and
	// selection toggles are chatty.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/distance", DistanceHandler())
	v1.Get("/exports/:id", timeout.NewWithContext(DownloadExportHandler(deps), requestTimeout))

	s := v1.Group("/sessions")
	s.Post("/", timeout.NewWithContext(CreateSessionHandler(deps), requestTimeout))
	s.Get("/:id", timeout.NewWithContext(GetSessionHandler(deps), requestTimeout))
	s.Delete("/:id", timeout.NewWithContext(DeleteSessionHandler(deps), requestTimeout))

	s.Post("/:id/dataset", timeout.NewWithContext(UploadDatasetHandler(deps), uploadTimeout))
	s.Get("/:id/records", timeout.NewWithContext(ListRecordsHandler(deps), requestTimeout))
	s.Get("/:id/preview", timeout.NewWithContext(PreviewHandler(deps), requestTimeout))
	s.Get("/:id/search", timeout.NewWithContext(SearchRecordsHandler(deps), requestTimeout))

	s.Put("/:id/reference", timeout.NewWithContext(SetReferenceHandler(deps), requestTimeout))
	s.Delete("/:id/reference", timeout.NewWithContext(ClearReferenceHandler(deps), requestTimeout))
	s.Put("/:id/radius", timeout.NewWithContext(SetRadiusHandler(deps), requestTimeout))

	s.Get("/:id/proximity", timeout.NewWithContext(ProximityHandler(deps), requestTimeout))
	s.Get("/:id/map", timeout.NewWithContext(MapHandler(deps), requestTimeout))

	s.Get("/:id/selection", timeout.NewWithContext(SelectionHandler(deps), requestTimeout))
	s.Post("/:id/selection/toggle", timeout.NewWithContext(ToggleSelectionHandler(deps), requestTimeout))
	s.Post("/:id/selection/remove", timeout.NewWithContext(RemoveSelectionHandler(deps), requestTimeout))
	s.Delete("/:id/selection", timeout.NewWithContext(ClearSelectionHandler(deps), requestTimeout))

	s.Post("/:id/export", timeout.NewWithContext(ExportHandler(deps), uploadTimeout))

	s.Get("/:id/notification", timeout.NewWithContext(NotificationHandler(deps), requestTimeout))
	s.Delete("/:id/notification", timeout.NewWithContext(DismissNotificationHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket: live events for one session
	app.Get("/ws/sessions/:id", WebSocketGuard(deps), websocket.New(WebSocketHandler(deps)))
}
