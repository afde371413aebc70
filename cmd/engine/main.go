package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch/internal/dispatch"
	"github.com/swiftride/dispatch/internal/drivers"
	"github.com/swiftride/dispatch/internal/fare"
	"github.com/swiftride/dispatch/internal/geoindex"
	"github.com/swiftride/dispatch/internal/notifications"
	"github.com/swiftride/dispatch/internal/payments"
	"github.com/swiftride/dispatch/internal/rides"
	"github.com/swiftride/dispatch/internal/subscriptions"
	"github.com/swiftride/dispatch/pkg/config"
	"github.com/swiftride/dispatch/pkg/database"
	"github.com/swiftride/dispatch/pkg/eventbus"
	"github.com/swiftride/dispatch/pkg/kvstore"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/middleware"
	redisclient "github.com/swiftride/dispatch/pkg/redis"
	"github.com/swiftride/dispatch/pkg/validation"
	"github.com/swiftride/dispatch/pkg/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting dispatch engine",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to PostgreSQL")

	// Redis
	redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// NATS JetStream (optional)
	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		bus, err = eventbus.New(busCfg)
		if err != nil {
			logger.Warn("Failed to connect to NATS, continuing without events", zap.Error(err))
		} else {
			defer bus.Close()
			logger.Info("Connected to NATS JetStream")
		}
	}

	// Websocket hub for driver pushes
	hub := websocket.NewHub()
	go hub.Run(rootCtx)

	// Repositories
	rideRepo := rides.NewRepository(db)
	driverRepo := drivers.NewRepository(db)
	subRepo := subscriptions.NewRepository(db)

	// Domain services
	index := geoindex.NewIndex(redisClient)
	ledger := subscriptions.NewLedger(subRepo)
	driverSvc := drivers.NewService(driverRepo, index)

	notifier := buildNotifier(cfg)
	gateway := buildGateway(cfg)

	var events rides.EventPublisher
	if bus != nil {
		events = bus
	}

	rideSvc := rides.NewService(rideRepo, fare.NewCalculator(), ledger, driverSvc, notifier, gateway, events)

	coordinator := dispatch.NewCoordinator(dispatch.Deps{
		Rides:     rideRepo,
		Drivers:   driverSvc,
		Index:     index,
		Offers:    kvstore.NewRedisStore(redisClient),
		Locker:    dispatch.NewRedisLocker(redisClient),
		Scheduler: dispatch.NewTimerScheduler(),
		Pusher:    hub,
		Notifier:  notifier,
		Lifecycle: rideSvc,
		Events:    events,
		Config:    cfg.Dispatch,
	})
	rideSvc.SetDispatcher(coordinator)

	// HTTP router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.RegisterCustomRules()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/drivers/:driver_id", websocket.ServeWS(hub))

	api := router.Group("/api/v1")
	rides.NewHandler(rideSvc, coordinator).RegisterRoutes(api)
	drivers.NewHandler(driverSvc).RegisterRoutes(api)
	subscriptions.NewHandler(ledger).RegisterRoutes(api)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// buildNotifier returns the Twilio notifier when configured, otherwise the
// log-only notifier.
func buildNotifier(cfg *config.Config) notifications.Notifier {
	if cfg.Twilio.Enabled && cfg.Twilio.AccountSID != "" {
		logger.Info("Using Twilio notifier")
		return notifications.NewTwilioNotifier(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	}
	return notifications.NewLogNotifier()
}

// buildGateway returns the Stripe gateway when configured, otherwise a
// gateway that refuses non-cash charges.
func buildGateway(cfg *config.Config) payments.Gateway {
	if cfg.Stripe.Enabled && cfg.Stripe.APIKey != "" {
		logger.Info("Using Stripe payment gateway")
		return payments.NewStripeGateway(cfg.Stripe.APIKey)
	}
	return payments.NewDisabledGateway()
}
