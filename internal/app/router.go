package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"homeservices/internal/domain"
	"homeservices/internal/handler"
	"homeservices/internal/middleware"
	"homeservices/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	ProviderHandler  *handler.ProviderHandler
	ClientHandler    *handler.ClientHandler
	BookingHandler   *handler.BookingHandler
	JobHandler       *handler.JobHandler
	IdempotencyStore redis.IdempotencyStoreInterface
	LockStore        redis.LockStoreInterface
	CORSOrigins      []string
	NewRelicApp      *newrelic.Application
	Logger           *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.CORSOrigins))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")

	// Registration happens before the caller has an identity.
	idempotent := middleware.IdempotencyMiddleware(deps.IdempotencyStore, deps.LockStore, deps.Logger)
	v1.POST("/clients/register", idempotent, deps.ClientHandler.Register)
	v1.POST("/providers/register", idempotent, deps.ProviderHandler.Register)

	authed := v1.Group("", middleware.Authenticate(), idempotent)
	admin := middleware.RequireRole(domain.RoleAdmin)

	clients := authed.Group("/clients")
	{
		clients.GET("/:id", deps.ClientHandler.GetClient)
	}

	providers := authed.Group("/providers")
	{
		providers.GET("", deps.ProviderHandler.GetAll)
		providers.GET("/search", deps.ProviderHandler.Search)
		providers.GET("/:id", deps.ProviderHandler.GetProvider)
		providers.POST("/:id/location", deps.ProviderHandler.UpdateLocation)
		providers.POST("/:id/availability", deps.ProviderHandler.SetAvailability)
		providers.POST("/:id/verify", admin, deps.ProviderHandler.Verify)
		providers.POST("/:id/suspend", admin, deps.ProviderHandler.Suspend)
		providers.POST("/:id/unsuspend", admin, deps.ProviderHandler.Unsuspend)
	}

	bookings := authed.Group("/bookings")
	{
		bookings.POST("", deps.BookingHandler.CreateBooking)
		bookings.GET("", deps.BookingHandler.GetAll)
		bookings.GET("/:id", deps.BookingHandler.GetBooking)
		bookings.POST("/:id/accept", deps.BookingHandler.Accept)
		bookings.POST("/:id/reject", deps.BookingHandler.Reject)
		bookings.POST("/:id/cancel", deps.BookingHandler.Cancel)
		bookings.POST("/:id/start", deps.BookingHandler.Start)
		bookings.POST("/:id/complete", deps.BookingHandler.Complete)
		bookings.POST("/:id/rate", deps.BookingHandler.Rate)
		bookings.POST("/:id/payment", deps.BookingHandler.AttachPayment)
		bookings.GET("/:id/job", deps.JobHandler.GetBookingJob)
		bookings.POST("/:id/job", admin, deps.BookingHandler.CreateJob)
	}

	jobs := authed.Group("/jobs")
	{
		jobs.GET("", deps.JobHandler.GetAll)
		jobs.GET("/:id", deps.JobHandler.GetJob)
	}

	return router
}
