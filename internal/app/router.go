package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"drivio/internal/auth"
	"drivio/internal/domain"
	"drivio/internal/handler"
	"drivio/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	DriverHandler  *handler.DriverHandler
	PromoHandler   *handler.PromoHandler
	FareHandler    *handler.FareHandler
	PaymentHandler *handler.PaymentHandler
	WSHandler      *handler.WSHandler
	Verifier       auth.TokenVerifier
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	Logger         *logrus.Logger
	AllowedOrigins []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.Auth(deps.Verifier))
	api.Use(middleware.NewRelicAttributes())
	if deps.RedisClient != nil {
		api.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	riderOnly := middleware.RequireRole(domain.RoleRider)
	driverOnly := middleware.RequireRole(domain.RoleDriver)

	// Ride routes.
	rides := api.Group("/rides")
	{
		rides.POST("/request", riderOnly, deps.RideHandler.CreateRide)
		rides.GET("/available", driverOnly, deps.RideHandler.ListAvailable)
		rides.GET("/history", deps.RideHandler.History)
		rides.GET("/awaiting-payment", riderOnly, deps.RideHandler.AwaitingPayment)
		rides.GET("/:id", deps.RideHandler.GetRide)
		rides.GET("/:id/events", deps.RideHandler.ListEvents)
		rides.GET("/:id/receipt", deps.RideHandler.GetReceipt)
		rides.POST("/:id/accept", driverOnly, deps.RideHandler.AcceptRide)
		rides.POST("/:id/start", driverOnly, deps.RideHandler.StartRide)
		rides.POST("/:id/complete", driverOnly, deps.RideHandler.CompleteRide)
		rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
		rides.POST("/:id/location", driverOnly, deps.RideHandler.UpdateLocation)
	}

	// Driver routes.
	drivers := api.Group("/drivers", driverOnly)
	{
		drivers.POST("/availability", deps.DriverHandler.Heartbeat)
		drivers.GET("/availability", deps.DriverHandler.GetAvailability)
	}

	api.POST("/promos/apply", riderOnly, deps.PromoHandler.ApplyPromo)
	api.POST("/fares/estimate", deps.FareHandler.Estimate)

	// Payment routes.
	payments := api.Group("/payments", riderOnly)
	{
		payments.POST("/settle", deps.PaymentHandler.SettlePayment)
		payments.GET("", deps.PaymentHandler.ListPayments)
		payments.GET("/:id", deps.PaymentHandler.GetPayment)
		payments.POST("/:id/confirm", deps.PaymentHandler.ConfirmPayment)
	}

	if deps.WSHandler != nil {
		api.GET("/ws", deps.WSHandler.Connect)
	}

	return router
}
