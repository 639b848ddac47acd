// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"paperflow/internal/cache"
	"paperflow/internal/config"
	"paperflow/internal/cron"
	"paperflow/internal/database"
	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/notifications"
	"paperflow/internal/repository"
	"paperflow/internal/service"
	"paperflow/internal/workflow"

	_ "paperflow/docs" // swagger docs

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo       repository.UserRepository
	paperRepo      repository.PaperRepository
	stageRepo      repository.StageRepository
	auditRepo      repository.AuditLogRepository
	optionRepo     repository.DeadlineOptionRepository
	attachmentRepo repository.AttachmentRepository

	notifier *notifications.Notifier
	hub      *notifications.Hub
	sweeper  *cron.OverdueSweeper

	userService     *service.UserService
	paperService    *service.PaperService
	workflowService *service.WorkflowService
	optionService   *service.DeadlineOptionService
	auditService    *service.AuditService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("paperflow-api"),
		userRepo:       repository.NewUserRepository(db),
		paperRepo:      repository.NewPaperRepository(db),
		stageRepo:      repository.NewStageRepository(db),
		auditRepo:      repository.NewAuditLogRepository(db),
		optionRepo:     repository.NewDeadlineOptionRepository(db),
		attachmentRepo: repository.NewAttachmentRepository(db),
	}

	var events service.EventPublisher = service.NopPublisher{}
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
		events = server.notifier
	}

	templates := workflow.NewTemplateRegistry()
	server.userService = service.NewUserService(server.userRepo)
	server.paperService = service.NewPaperService(db, server.paperRepo, server.attachmentRepo, NewDiskStore(cfg.AttachmentDir))
	server.workflowService = service.NewWorkflowService(db, templates, events)
	server.optionService = service.NewDeadlineOptionService(server.optionRepo)
	server.auditService = service.NewAuditService(server.auditRepo)
	server.sweeper = cron.NewOverdueSweeper(server.paperRepo, events)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Paperflow Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public tracking lookup: requisitioners share tracking numbers freely.
	api.Get("/papers/track/:trackingNumber", s.GetPaperByTrackingNumber)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Get("/approvers", s.GetApprovers)

	papers := protected.Group("/papers")
	papers.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_paper"), s.CreatePaper)
	papers.Get("/", s.GetPapers)
	papers.Get("/overdue", s.GetOverduePapers)
	// Specific /:id/:resource routes BEFORE generic /:id route
	papers.Post("/:id/submit", s.SubmitPaper)
	papers.Post("/:id/advance", s.AdvanceStage)
	papers.Post("/:id/return", s.ReturnStage)
	papers.Post("/:id/reject", s.RejectStage)
	papers.Get("/:id/stages", s.GetPaperStages)
	papers.Get("/:id/audit", s.GetAuditTrail)
	papers.Post("/:id/attachments", s.UploadAttachment)
	papers.Get("/:id/attachments", s.GetAttachments)
	papers.Get("/:id", s.GetPaper)
	papers.Delete("/:id", s.DeletePaper)

	// Deadline options: readable by any authenticated user, writable by admin.
	options := protected.Group("/deadline-options")
	options.Get("/", s.GetDeadlineOptions)

	stages := protected.Group("/stages", middleware.RequireRole(models.RoleAdmin))
	stages.Post("/:id/reassign", s.ReassignStage)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Post("/papers/:id/stages", s.InsertStage)
	admin.Post("/stages/backfill", s.BackfillStage)
	admin.Post("/deadline-options", s.CreateDeadlineOption)
	admin.Put("/deadline-options/:key", s.UpdateDeadlineOption)
	admin.Delete("/deadline-options/:key", s.DeleteDeadlineOption)

	// Websocket endpoint
	ws := api.Group("/ws", middleware.AuthRequired)
	ws.Get("/", s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis is optional: notifications degrade, tracking still works.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Concept Paper Tracking API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}

	if err := s.sweeper.Start(s.shutdownCtx, s.config.OverdueSweepSpec); err != nil {
		return fmt.Errorf("overdue sweep scheduling failed: %w", err)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", s.hub.Name(), err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
