package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"jobhub/internal/audit"
	"jobhub/internal/config"
	"jobhub/internal/metrics"
	"jobhub/internal/notify"
	"jobhub/internal/store"
	"jobhub/internal/workflow"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	logger *slog.Logger
}

func NewServer(cfg *config.Config, st *store.Store, logger *slog.Logger) *Server {
	app := fiber.New()

	// Redis client for rate limiting, health checks, and event publishing
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	var pub *notify.Publisher
	if cfg.Notify.Enabled && rdb != nil {
		pub = notify.NewPublisher(rdb, cfg.Notify.Channel, logger)
	}

	// Workflow components are built once and injected rather than
	// reached for as package globals.
	wf := workflow.NewValidator()
	ac := audit.NewController()

	// Inject config, store, and workflow components into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		c.Locals("validator", wf)
		c.Locals("audit", ac)
		if pub != nil {
			c.Locals("notify", pub)
		}
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check Mongo and Redis connectivity.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.Ping(ctx); err != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	authMw := authMiddleware(cfg, st)
	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	v1 := app.Group("/v1", authMw, rateMw)
	registerV1Routes(v1)

	admin := app.Group("/admin", authMw, adminOnlyMiddleware)
	registerAdminRoutes(admin)

	return &Server{
		app:    app,
		config: cfg,
		store:  st,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func registerV1Routes(group fiber.Router) {
	group.Post("/jobs", createJobHandler)
	group.Get("/jobs", listJobsHandler)
	group.Get("/jobs/:id", jobDetailHandler)
	group.Post("/jobs/:id/status", transitionHandler)
	group.Get("/jobs/:id/transitions", transitionsHandler)

	group.Post("/jobs/:id/audits", recordAuditHandler)
	group.Post("/jobs/:id/audits/:auditId/review", reviewAuditHandler)
	group.Post("/jobs/:id/audits/:auditId/correction", submitCorrectionHandler)
	group.Post("/jobs/:id/audits/:auditId/resolve", resolveAuditHandler)

	group.Post("/jobs/:id/dependencies", addDependencyHandler)
	group.Patch("/jobs/:id/dependencies/:depId", updateDependencyHandler)
}

func registerAdminRoutes(group fiber.Router) {
	group.Post("/api-keys", adminCreateAPIKeyHandler)
	group.Get("/api-keys", adminListAPIKeysHandler)
}
