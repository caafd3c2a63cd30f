package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"groupware/approval-portal/approval-portal-backend/internal/approval"
	"groupware/approval-portal/approval-portal-backend/internal/auth"
	"groupware/approval-portal/approval-portal-backend/internal/board"
	"groupware/approval-portal/approval-portal-backend/internal/config"
	"groupware/approval-portal/approval-portal-backend/internal/content"
	"groupware/approval-portal/approval-portal-backend/internal/users"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	if os.Getenv("APP_ENV") == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// Connect to Postgres (summary, task queue, reference log)
	dbURL := cfg.Database.GetDatabaseURL()
	logger.Info("Connecting to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := approval.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate approval tables", zap.Error(err))
	}

	// Connect to MongoDB (document bodies)
	mongoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	if err := mongoClient.Ping(mongoCtx, nil); err != nil {
		logger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}

	// User directory runs on gorm over the same Postgres instance
	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	// Stores
	contentStore := content.NewStore(mongoClient.Database(cfg.Mongo.Database))
	metaStore := approval.NewMetadataStore(db)
	taskQueue := approval.NewTaskQueue(db)
	referenceLog := approval.NewReferenceLog(db)

	// Services
	userRepo, err := users.NewRepository(gormDB)
	if err != nil {
		logger.Fatal("Failed to initialize user repository", zap.Error(err))
	}
	userService := users.NewService(userRepo, logger)
	tokenService := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	engine := approval.NewEngine(contentStore, metaStore, taskQueue, referenceLog, logger)
	boardService := board.NewService(contentStore, metaStore, taskQueue, referenceLog, logger)

	// Handlers
	authHandler := auth.NewHandler(userService, tokenService, logger)
	approvalHandler := approval.NewHandler(engine, logger)
	boardHandler := board.NewHandler(boardService, logger)

	// Reconciliation sweep
	reconciler := approval.NewReconciler(contentStore, metaStore, taskQueue, logger)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Reconcile.Schedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := reconciler.Run(sweepCtx); err != nil {
			logger.Error("Reconciliation sweep failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("Invalid reconcile schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup Router
	if os.Getenv("APP_ENV") != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	auth.RegisterRoutes(router, authHandler, tokenService)

	api := router.Group("/api/v1", auth.Middleware(tokenService))
	{
		approvalHandler.RegisterRoutes(api)
		boardHandler.RegisterRoutes(api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
