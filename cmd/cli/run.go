package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
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
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the omnidesk server",
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	shutdownOTel, err := observability.SetupTracing(context.Background(), cfg)
	if err != nil {
		appLogger.Warnf("init tracing: %v", err)
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Contact{}, &models.Conversation{}, &models.Message{},
		&models.Ticket{}, &models.Notification{},
		&models.AutomationRule{}, &models.AutomationRun{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

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

	if cfg.Server.Host != "localhost" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
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

		api.GET("/metrics", handlers.NewMetricsHandler().GetMetrics)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
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
