package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/database"
	_ "github.com/lshigami/codescreen/docs"
	"github.com/lshigami/codescreen/internal/controller"
	adminctrl "github.com/lshigami/codescreen/internal/controller/admin"
	candidatectrl "github.com/lshigami/codescreen/internal/controller/candidate"
	"github.com/lshigami/codescreen/internal/logger"
	"github.com/lshigami/codescreen/internal/repository"
	"github.com/lshigami/codescreen/internal/repository/memory"
	"github.com/lshigami/codescreen/internal/service"
	"github.com/lshigami/codescreen/internal/ws"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title CodeScreen Assessment API
// @version 1.0
// @description Proctored candidate test sessions: start, autosave, submit and timeout reaping.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey AdminAPIKey
// @in header
// @name X-Admin-API-Key
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			ws.NewHub,
			service.NewSystemClock,
		),

		fx.Provide(NewRepositories),

		fx.Provide(
			service.NewScoringService,
			service.NewLogNotifier,
			func(hub *ws.Hub) service.EventPublisher { return hub },
			service.NewSessionService,
			service.NewAdminTestService,
			service.NewReaper,
		),

		fx.Provide(
			candidatectrl.NewCandidateController,
			adminctrl.NewAdminTestController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(StartReaper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop application cleanly")
	}
}

// NewRepositories picks the store backend once, at startup.
func NewRepositories(cfg *config.Config, db *gorm.DB) (
	repository.TestRepository,
	repository.QuestionRepository,
	repository.CandidateRepository,
	repository.ResponseRepository,
) {
	if cfg.Database.Driver == config.StoreDriverMemory {
		store := memory.NewStore()
		return store.Tests(), store.Questions(), store.Candidates(), store.Responses()
	}
	return repository.NewTestRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewCandidateRepository(db),
		repository.NewResponseRepository(db)
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", controller.AdminAPIKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.Server.AllowOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	return r
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	candidateCtrl *candidatectrl.CandidateController,
	adminCtrl *adminctrl.AdminTestController,
) {
	api := router.Group("/api/v1")
	candidateCtrl.RegisterRoutes(api)
	adminCtrl.RegisterRoutes(api.Group("/admin", controller.RequireAdminKey(cfg)))

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("CodeScreen server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// StartReaper ties the timeout reaper to the application lifecycle.
func StartReaper(lc fx.Lifecycle, reaper *service.Reaper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			reaper.Start()
			return nil
		},
		OnStop: reaper.Stop,
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	return database.AutoMigrate(db)
}
