package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/database"
	"github.com/ruoshui-go/mbtirec/internal/handlers"
	"github.com/ruoshui-go/mbtirec/internal/middleware"
	"github.com/ruoshui-go/mbtirec/internal/services"
	"github.com/ruoshui-go/mbtirec/internal/validation"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	services  *services.Services
	handlers  *handlers.Handlers
	validator *validation.SchemaValidator
	router    *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// Initialize services
	svcs, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	// Compile the embedded request schemas
	schemaValidator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize validation: %w", err)
	}
	app.validator = schemaValidator

	// Initialize handlers
	app.handlers = handlers.New(app.logger, svcs, cfg)

	// Setup router
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Logger() *logrus.Logger {
	return a.logger
}

// Shutdown stops background work first so nothing touches the store after the
// connections close.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	a.services.Stop()

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if !a.config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health endpoints (no auth required)
	router.GET("/health", a.handlers.Health.Check)
	router.GET("/health/detailed", a.handlers.Health.Detailed)

	// Prometheus metrics endpoint (no auth required)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v1")
	{
		system := api.Group("/system")
		{
			system.GET("/info", a.handlers.System.Info)
			system.GET("/mbti-scoring-mode", a.handlers.System.GetScoringMode)
			system.POST("/mbti-scoring-mode", a.handlers.System.SetScoringMode)
		}

		behavior := api.Group("/behavior")
		{
			behavior.POST("/record", middleware.ValidateBehaviorRecord(a.validator), a.handlers.Behavior.Record)
			behavior.GET("/history/:user_id", a.handlers.Behavior.History)
			behavior.GET("/stats/:user_id", a.handlers.Behavior.Stats)
		}

		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/:user_id", a.handlers.Recommendation.Get)
			recommendations.GET("/similar/:content_id", a.handlers.Recommendation.GetSimilar)
		}

		mbti := api.Group("/mbti")
		{
			mbti.GET("/profile/:user_id", a.handlers.Profile.Get)
			mbti.POST("/update/:user_id", a.handlers.Profile.Update)
		}

		content := api.Group("/content")
		{
			content.GET("/:content_id", a.handlers.Content.GetDetail)
			content.POST("/batch", a.handlers.Content.GetBatch)
		}

		admin := api.Group("/admin")
		{
			admin.Use(middleware.AdminAuth(a.services.Auth, a.logger))
			admin.POST("/content/:content_id/evaluate", a.handlers.Admin.Evaluate)
			admin.POST("/content/batch_evaluate", a.handlers.Admin.BatchEvaluate)
		}
	}

	a.router = router
}
