package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cbtportal/config"
	"cbtportal/handlers"
	"cbtportal/logger"
	"cbtportal/middleware"
	"cbtportal/models"
	"cbtportal/monitoring"
	"cbtportal/routes"
	"cbtportal/services"
	"cbtportal/session"
	"cbtportal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&models.User{}, &models.KVEntry{}); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	quizStore, err := openQuizStore(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to open quiz store", zap.Error(err))
	}

	monitoring.Init()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	quizService := services.NewQuizService(quizStore, log)
	draftService := services.NewDraftService(quizService, cfg.DraftTTL, log)
	hub := services.NewSessionHub(quizStore, cfg.SessionTTL, log, session.WithTickInterval(cfg.TickInterval))
	userService := services.NewUserService(db, log)
	dashboardService := services.NewDashboardService(userService, hub)

	go draftService.Run(ctx, time.Minute)
	go hub.Run(ctx, time.Minute)

	gin.SetMode(cfg.Mode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		monitoring.MetricsMiddleware(),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Secure(),
		middleware.RateLimiter(cfg.RateLimit, cfg.RateLimitWindow),
	)

	routes.SetupRoutes(router, routes.Handlers{
		Quiz:    handlers.NewQuizHandler(quizService, cfg.PublicBaseURL, log),
		Draft:   handlers.NewDraftHandler(draftService, cfg.PublicBaseURL),
		Session: handlers.NewSessionHandler(hub, cfg.CORSOrigins, log),
		Admin:   handlers.NewAdminHandler(userService, dashboardService),
	})

	srv := &http.Server{
		Addr:    cfg.BindAddress + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("quiz_store", cfg.QuizStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	stop()
	hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}

func openQuizStore(cfg *config.Config, db *gorm.DB, log *zap.Logger) (store.Store, error) {
	switch cfg.QuizStore {
	case config.StoreRedis:
		client := config.InitRedis(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return store.NewRedisStore(client, log), nil
	case config.StoreSQL:
		return store.NewGormStore(db, log), nil
	default:
		return store.NewMemoryStore(), nil
	}
}
