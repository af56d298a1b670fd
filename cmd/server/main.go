package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codebuildervaibhav/call-diarization/internal/app"
	"github.com/codebuildervaibhav/call-diarization/internal/cleanup"
	"github.com/codebuildervaibhav/call-diarization/internal/config"
	"github.com/codebuildervaibhav/call-diarization/internal/handlers"
	"github.com/codebuildervaibhav/call-diarization/internal/logging"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Keep the latest lines for GET /logs
	logBuffer := logging.NewBuffer(logging.DefaultBufferLines)
	log := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, io.MultiWriter(os.Stdout, logBuffer))

	if err := cleanup.EnsureDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to create temp directory")
	}

	log.Info().Msg("Initializing components...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{Store: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer a.Close()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		log,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	server := fiber.New(fiber.Config{
		BodyLimit:             2 * cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// Middleware
	server.Use(recover.New())
	server.Use(logger.New(logger.Config{Output: io.MultiWriter(os.Stdout, logBuffer)}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	evaluateHandler := handlers.NewEvaluateHandler(a.Pipeline, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB, log)
	runsHandler := handlers.NewRunsHandler(a.Store)

	// Routes
	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": version,
		})
	})
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	server.Post("/evaluate", evaluateHandler.Handle)
	server.Get("/runs", runsHandler.List)
	server.Get("/runs/:id", runsHandler.Get)
	server.Get("/logs", handlers.Logs(logBuffer))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().
		Str("addr", addr).
		Strs("endpoints", []string{
			"POST /evaluate",
			"GET  /runs",
			"GET  /runs/:id",
			"GET  /logs",
			"GET  /metrics",
			"GET  /health",
		}).
		Msg("Server starting")

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down gracefully...")
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	if err := server.Listen(addr); err != nil {
		log.Error().Err(err).Msg("Server failed")
		os.Exit(1)
	}
}
