// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "codegardener/docs" // swagger docs
	"codegardener/internal/cache"
	"codegardener/internal/config"
	"codegardener/internal/database"
	"codegardener/internal/middleware"
	"codegardener/internal/models"
	"codegardener/internal/observability"
	"codegardener/internal/repository"
	"codegardener/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
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

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	feedbackRepo repository.FeedbackRepository

	userService        *service.UserService
	postService        *service.PostService
	feedbackService    *service.FeedbackService
	reputationService  *service.ReputationService
	leaderboardService *service.LeaderboardService
	aiService          *service.AIFeedbackService
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
		promMiddleware: fiberprometheus.New("codegardener-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		feedbackRepo:   repository.NewFeedbackRepository(db),
	}

	logger := observability.GlobalLogger.Logger
	server.userService = service.NewUserService(server.userRepo)
	server.reputationService = service.NewReputationService(server.userRepo, logger)
	server.aiService = service.NewAIFeedbackService(cfg, logger)
	server.postService = service.NewPostService(
		server.postRepo, server.userRepo, server.aiService, logger, server.userService.IsAdmin)
	server.feedbackService = service.NewFeedbackService(
		server.feedbackRepo, server.postRepo, server.userRepo,
		server.reputationService, logger, server.userService.IsAdmin)
	server.leaderboardService = service.NewLeaderboardService(server.userRepo, server.feedbackRepo)

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

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
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

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, middleware.LimitSignup), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, middleware.LimitLogin), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	// Public post routes; OptionalAuth personalizes liked/scrapped flags
	publicPosts := api.Group("/posts", middleware.OptionalAuth)
	publicPosts.Get("/", s.DiscoverPosts)
	publicPosts.Get("/search", s.DiscoverPosts)
	publicPosts.Get("/popular", s.GetPopularPosts)
	publicPosts.Get("/:id/feedbacks", s.GetPostFeedbacks)
	publicPosts.Get("/:id/ai-feedback", s.GetPostAIFeedback)
	publicPosts.Get("/:id", s.GetPost)

	// Public feedback detail (lines + comments)
	api.Get("/feedbacks/:id", s.GetFeedback)

	// Public community routes
	api.Get("/main", middleware.OptionalAuth, s.GetMainPage)
	leaderboard := api.Group("/leaderboard")
	leaderboard.Get("/top3", s.GetLeaderboardTop3)
	leaderboard.Get("/", s.GetLeaderboard)

	// Public user routes
	api.Get("/users/:id/posts", s.GetUserPosts)
	api.Get("/users/:id/feedbacks", s.GetUserFeedbacks)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Delete("/me", s.DeleteMyAccount)
	users.Post("/me/attendance", s.CheckAttendance)
	users.Get("/me/scraps", s.GetMyScraps)
	users.Put("/:id/role", s.AdminRequired(), s.SetUserRole)
	users.Get("/:id", s.GetUserProfile)
	users.Delete("/:id", s.AdminRequired(), s.DeleteUser)

	// Protected post routes
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, middleware.LimitCreatePost), s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Post("/:id/like", s.TogglePostLike)
	posts.Post("/:id/scrap", s.TogglePostScrap)
	posts.Post("/:id/ai-feedback", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, middleware.LimitAIReview), s.RegenerateAIFeedback)
	posts.Post("/:id/feedbacks", middleware.RateLimit(
		s.redis, 10, time.Minute, middleware.LimitCreateFeedback), s.CreateFeedback)
	// Generic /:id routes (for update, delete)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Feedback routes
	feedbacks := protected.Group("/feedbacks")
	feedbacks.Post("/:id/adopt", s.AdoptFeedback)
	feedbacks.Post("/:id/like", s.ToggleFeedbackLike)
	feedbacks.Post("/:id/comments", middleware.RateLimit(
		s.redis, 15, time.Minute, middleware.LimitCreateComment), s.CreateFeedbackComment)
	feedbacks.Delete("/:id/comments/:commentId", s.DeleteFeedbackComment)
	feedbacks.Post("/:id/lines", s.CreateLineFeedback)
	feedbacks.Put("/:id/lines/:lineId", s.UpdateLineFeedback)
	feedbacks.Delete("/:id/lines/:lineId", s.DeleteLineFeedback)
	feedbacks.Put("/:id", s.UpdateFeedback)
	feedbacks.Delete("/:id", s.DeleteFeedback)
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

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, err := s.userService.IsAdmin(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Code Gardener API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
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
