package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"omnidesk/internal/config"
	"omnidesk/internal/handlers"
	"omnidesk/internal/middleware"
	"omnidesk/internal/models"
	"omnidesk/internal/observability"
	"omnidesk/internal/services"
	"omnidesk/pkg/webhook"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	// Read config file (default ./config.yml), env vars override.
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	var (
		flagDSN string
		srvHost string
		srvPort int
	)
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(os.Stdout)
	flagSet.StringVar(&flagDSN, "dsn", os.Getenv("DB_DSN"), "Postgres DSN, if set overrides config database section")
	flagSet.StringVar(&srvHost, "host", getenvDefault("OMNIDESK_HOST", cfg.Server.Host), "server host (listen)")
	flagSet.IntVar(&srvPort, "port", func() int {
		if p := os.Getenv("OMNIDESK_PORT"); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				return n
			}
		}
		return cfg.Server.Port
	}(), "server port (listen)")
	_ = flagSet.Parse(os.Args[1:])

	if n8n := os.Getenv("N8N_BASE_URL"); n8n != "" {
		cfg.Automation.N8NBaseURL = n8n
	}

	dsn := flagDSN
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}

	if err := config.InitLogger(cfg); err != nil {
		logrus.Warnf("init logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	shutdownOTel, err := observability.SetupTracing(context.Background(), cfg)
	if err != nil {
		appLogger.Warnf("init tracing: %v", err)
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}

	if err := db.AutoMigrate(
		&models.Contact{}, &models.Conversation{}, &models.Message{},
		&models.Ticket{}, &models.Notification{},
		&models.AutomationRule{}, &models.AutomationRun{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// Services. The rule engine's action executor delegates into the domain
	// services, which in turn fire triggers back into the engine, so the
	// engine reference is injected after construction.
	wsHub := services.NewWebSocketHub()
	go wsHub.Run()

	automationSvc := services.NewAutomationService(db, appLogger)
	conversationSvc := services.NewConversationService(db, appLogger)
	ticketSvc := services.NewTicketService(db, appLogger)
	notificationSvc := services.NewNotificationService(db, wsHub, appLogger)

	webhookClient := webhook.NewClient(cfg.Automation.WebhookTimeout, appLogger)
	executor := services.NewActionExecutor(cfg.Automation, webhookClient,
		conversationSvc, ticketSvc, notificationSvc, appLogger)
	engine := services.NewRuleEngine(automationSvc, executor, db, appLogger)
	conversationSvc.SetRuleEngine(engine)
	ticketSvc.SetRuleEngine(engine)

	if srvHost != "localhost" && srvHost != "127.0.0.1" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, wsHub, automationSvc, engine, conversationSvc, ticketSvc, notificationSvc)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", srvHost, srvPort),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on %s:%d", srvHost, srvPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}
	appLogger.Info("Server exited")
}

func setupRouter(
	cfg *config.Config,
	wsHub *services.WebSocketHub,
	automationSvc *services.AutomationService,
	engine *services.RuleEngine,
	conversationSvc *services.ConversationService,
	ticketSvc *services.TicketService,
	notificationSvc *services.NotificationService,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	if cfg.Security.CORS.Enabled {
		router.Use(corsMiddleware())
	}
	if cfg.Monitoring.Tracing.Enabled {
		router.Use(otelgin.Middleware("omnidesk"))
	}
	router.Use(middleware.RateLimitMiddleware(cfg))

	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	api := router.Group("/api/v1")
	{
		handlers.RegisterAutomationRoutes(api, handlers.NewAutomationHandler(automationSvc, engine))
		handlers.RegisterConversationRoutes(api, handlers.NewConversationHandler(conversationSvc))
		handlers.RegisterTicketRoutes(api, handlers.NewTicketHandler(ticketSvc))

		notificationHandler := handlers.NewNotificationHandler(notificationSvc)
		api.GET("/notifications", notificationHandler.ListNotifications)
		api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)

		wsHandler := handlers.NewWebSocketHandler(wsHub)
		api.GET("/ws", wsHandler.HandleWebSocket)
		api.GET("/ws/stats", wsHandler.GetStats)

		metricsHandler := handlers.NewMetricsHandler()
		api.GET("/metrics", metricsHandler.GetMetrics)
	}

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
