package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"drivio/internal/app"
	"drivio/internal/auth"
	"drivio/internal/config"
	"drivio/internal/handler"
	"drivio/internal/logger"
	"drivio/internal/maps"
	"drivio/internal/notify"
	"drivio/internal/payment"
	internalRedis "drivio/internal/redis"
	"drivio/internal/repository/postgres"
	"drivio/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	log := logger.New(cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.WithField("addr", cfg.Redis.Addr).Info("connected to Redis")

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := notify.NewHub(log)
	go hub.Run(hubCtx)

	server, err := wireServer(db, redisClient, hub, nrApp, log, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to wire server")
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	stopHub()

	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	log.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	hub *notify.Hub,
	nrApp *newrelic.Application,
	log *logrus.Logger,
	cfg *config.Config,
) (*http.Server, error) {
	engine := cfg.Engine

	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	presenceStore := internalRedis.NewPresenceStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repositories.
	repos := postgres.NewRepositories(db)
	transactor := postgres.NewTransactor(db)

	// External collaborators.
	processor, err := payment.NewProcessor(cfg.Payments)
	if err != nil {
		return nil, err
	}
	log.WithField("provider", processor.Name()).Info("payment processor ready")

	var distance service.DistanceEstimator
	if cfg.Maps.GoogleAPIKey != "" {
		distanceService, err := maps.NewDistanceService(cfg.Maps.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		distance = distanceService
	} else {
		log.Info("no maps key configured, using straight-line distances")
	}

	// Initialize services.
	notificationService := service.NewNotificationService(hub)
	driverService := service.NewDriverService(locationStore, presenceStore, repos.Rides, service.AvailabilityConfig{
		StaleAfter:     engine.StaleAfter,
		HeartbeatTTL:   engine.HeartbeatTTL,
		FeedRadiusKm:   engine.FeedRadiusKm,
		FeedLimit:      engine.FeedLimit,
		NearbyNotifyKm: engine.NearbyNotifyKm,
	})
	promoService := service.NewPromoService(repos.Promos, transactor)
	rideService := service.NewRideService(
		repos.Rides,
		repos.Events,
		transactor,
		driverService,
		promoService,
		distance,
		notificationService,
		service.RideConfig{UpstreamTimeout: engine.UpstreamTimeout},
	)
	paymentService := service.NewPaymentService(repos.Payments, repos.Rides, lockStore, processor, notificationService, service.PaymentConfig{
		Currency:        cfg.Payments.Currency,
		LockTTL:         engine.SettlementLockTTL,
		UpstreamTimeout: engine.UpstreamTimeout,
	})
	receiptService := service.NewReceiptService(rideService, repos.Payments, cfg.Payments.Currency)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:    handler.NewRideHandler(rideService, driverService, receiptService),
		DriverHandler:  handler.NewDriverHandler(driverService),
		PromoHandler:   handler.NewPromoHandler(promoService),
		FareHandler:    handler.NewFareHandler(rideService),
		PaymentHandler: handler.NewPaymentHandler(paymentService),
		WSHandler:      handler.NewWSHandler(hub, cfg.Server.AllowedOrigins),
		Verifier:       auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server. WriteTimeout does not apply to hijacked websocket
	// connections.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
