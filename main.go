// File: pitstop/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pitstop/config"
	"pitstop/cron"
	"pitstop/database"
	"pitstop/database/repository"
	"pitstop/handlers"
	"pitstop/middleware"
	"pitstop/routes"
	"pitstop/services/conversation"
	"pitstop/services/extraction"
	"pitstop/services/fusion"
	"pitstop/services/tasks"
	"pitstop/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	corsCfg := cors.DefaultConfig()
	if config.AppConfig.AllowedOrigins == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = strings.Split(config.AppConfig.AllowedOrigins, ",")
	}
	router.Use(cors.New(corsCfg))

	// Repositories.
	bookingRepo := repository.NewMongoBookingRepo()
	archiveRepo := repository.NewMongoConversationRepo()

	// Extraction strategies. The model-based strategy is optional; the
	// rule-based fallback always runs.
	ruleExtractor := extraction.NewRuleExtractor()
	var modelExtractor extraction.FieldExtractor
	var sentiment extraction.SentimentAnalyzer
	if key := config.AppConfig.GeminiAPIKey; key != "" {
		ctx := context.Background()
		gemini, err := extraction.NewGeminiExtractor(ctx, key)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize Gemini extractor: %v", err)
		}
		modelExtractor = gemini

		gs, err := extraction.NewGeminiSentiment(ctx, key)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize Gemini sentiment: %v", err)
		}
		sentiment = gs
	} else {
		logger.Sugar().Warn("main: GEMINI_API_KEY not set, running rules-only with neutral sentiment")
	}
	registry := extraction.NewRegistry(ruleExtractor, modelExtractor)

	// Conversation aggregate.
	sessionStore := conversation.NewRedisSessionStore(
		utils.GetSessionCacheClient(),
		time.Duration(config.AppConfig.SessionTTLMin)*time.Minute,
	)
	scanner := conversation.NewRetroScanner(ruleExtractor, config.AppConfig.RetroScanWindow)
	reminders := tasks.NewAsynqReminderScheduler()
	defer reminders.Close()

	conversationService := conversation.NewDefaultConversationService(
		sessionStore,
		registry,
		sentiment,
		fusion.NewEngine(logger),
		scanner,
		bookingRepo,
		archiveRepo,
		reminders,
		logger,
		time.Duration(config.AppConfig.ExtractionTimeoutMS)*time.Millisecond,
	)

	chatHandler := handlers.NewChatHandler(conversationService, logger)
	routes.RegisterRoutes(router, chatHandler)

	// Background workers and health checks.
	cron.InitReminderWorker(logger)
	utils.StartHealthMonitor([]*redis.Client{utils.GetSessionCacheClient()}, database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
