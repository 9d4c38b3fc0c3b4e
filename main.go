package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cadence/collab-server/config"
	"cadence/collab-server/db"
	"cadence/collab-server/handlers"
	"cadence/collab-server/middleware"
	"cadence/collab-server/realtime"
	"cadence/collab-server/services"
	"cadence/collab-server/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize logger
	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)

	// Connect to database
	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Connect to Redis
	redisClient, err := db.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()

	// Metrics registry
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := realtime.NewMetrics(promRegistry)

	// Realtime core: one registry, one membership table, one hub per process,
	// constructed here and injected everywhere they are used
	registry := realtime.NewConnectionRegistry()
	groups := realtime.NewGroupMembership()
	hub := realtime.NewHub(cfg.SendBufferSize, logger, metrics)
	broadcaster := realtime.NewBroadcaster(hub, groups, logger, metrics)
	notifier := realtime.NewNotifier(broadcaster)

	// Services
	lastSeen := services.NewLastSeenStore(redisClient, logger, cfg.PresenceTTL)
	presence := realtime.NewPresenceTracker(registry, notifier, lastSeen, logger, metrics)
	chatService := services.NewChatService(database, notifier, logger)

	sessionDeps := realtime.SessionDeps{
		Hub:      hub,
		Groups:   groups,
		Presence: presence,
		Notifier: notifier,
		Channels: chatService,
		Logger:   logger,
	}

	// Handlers
	wsHandler := handlers.NewWSHandler(cfg.AllowedOrigin, sessionDeps, logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)
	presenceHandler := handlers.NewPresenceHandler(lastSeen, presence, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigin))

	// Health check and metrics endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	// WebSocket endpoints
	ws := router.Group("/ws")
	ws.Use(middleware.Auth(cfg.JWTSecret))
	{
		ws.GET("/chat", wsHandler.Chat)
		ws.GET("/workspace", wsHandler.Workspace)
	}

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTSecret))
	{
		channels := v1.Group("/channels")
		{
			channels.GET("", chatHandler.ListChannels)
			channels.POST("", chatHandler.CreateChannel)
			channels.GET("/:id/messages", chatHandler.ListMessages)
			channels.POST("/:id/messages", chatHandler.CreateMessage)
		}

		messages := v1.Group("/messages")
		{
			messages.POST("/:id/reactions", chatHandler.AddReaction)
			messages.DELETE("/:id/reactions", chatHandler.RemoveReaction)
			messages.POST("/:id/read", chatHandler.MarkRead)
		}

		presenceRoutes := v1.Group("/presence")
		{
			presenceRoutes.GET("/status", presenceHandler.GetStatus)
		}

		workspaces := v1.Group("/workspaces")
		{
			workspaces.GET("/:id/presence", presenceHandler.GetWorkspaceOnline)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting Collab Server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
