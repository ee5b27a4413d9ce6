package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/propertypulse/propertypulse/internal/adapters/csvfile"
	"github.com/propertypulse/propertypulse/internal/adapters/http"
	"github.com/propertypulse/propertypulse/internal/adapters/memory"
	natsadapter "github.com/propertypulse/propertypulse/internal/adapters/nats"
	"github.com/propertypulse/propertypulse/internal/adapters/valkey"
	"github.com/propertypulse/propertypulse/internal/adapters/xlsx"
	"github.com/propertypulse/propertypulse/internal/core/ports"
	"github.com/propertypulse/propertypulse/internal/core/usecases"
	"github.com/propertypulse/propertypulse/internal/pkg/config"
	"github.com/propertypulse/propertypulse/internal/pkg/logging"
	"github.com/propertypulse/propertypulse/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("propertypulse-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Sessions live in memory; idle ones are swept in the background.
	sessions := memory.NewSessionRepo(cfg.Session.IdleTTL)
	go sessions.RunJanitor(ctx, cfg.Session.SweepInterval)

	deps := &http.Dependencies{Version: version}

	// Export store (optional)
	var exports ports.ExportStore
	if cfg.Valkey.Enabled {
		store, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
		if err != nil {
			slog.Warn("valkey unavailable, stored exports disabled", "error", err)
		} else {
			defer store.Close()
			exports = store
			deps.Exports = store
		}
	}

	// Session events (optional)
	var events ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, session events disabled", "error", err)
		} else {
			defer pub.Close()
			events = pub
			deps.NATS = pub.Conn()
			deps.Events = natsadapter.NewSubscriber(pub.Conn())
		}
	}

	deps.Sessions = usecases.NewSessionService(
		sessions,
		csvfile.NewParser(),
		xlsx.NewWriter(),
		exports,
		events,
		cfg.Valkey.ExportTTL,
	)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit(),
		AppName:      "PropertyPulse API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Disposition, Location, Link",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	cancel()

	slog.Info("server stopped")
}
