// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/reservations"
	"ticketly/internal/shared/clock"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/waitlist"
	"ticketly/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	cache     *cache.Service
	publisher notifications.Publisher

	eventService       events.Service
	waitlistService    waitlist.Service
	reservationService reservations.Service
}

// NewRouter creates a new router instance and wires the service graph.
// The waitlist service is built first so the reservation service can hand
// freed capacity to it.
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher) *Router {
	if publisher == nil {
		publisher = notifications.NewNoopPublisher()
	}

	cacheService := cache.New(db.GetRedisClient(), "ticketly")
	systemClock := clock.NewSystem()

	eventRepo := events.NewRepository(db.GetPostgreSQL())
	eventService := events.NewService(eventRepo)

	waitlistRepo := waitlist.NewRepository(db.GetPostgreSQL())
	waitlistService := waitlist.NewService(waitlistRepo, eventRepo, publisher,
		cacheService, systemClock, cfg.Waitlist, cfg.Redis.PositionCacheTTL, nil)

	reservationRepo := reservations.NewRepository(db.GetPostgreSQL())
	reservationService := reservations.NewService(reservationRepo, waitlistService,
		systemClock, cfg.Reservations, nil)

	return &Router{
		config:             cfg,
		db:                 db,
		cache:              cacheService,
		publisher:          publisher,
		eventService:       eventService,
		waitlistService:    waitlistService,
		reservationService: reservationService,
	}
}

// ReservationService exposes the reservation service for background jobs.
func (r *Router) ReservationService() reservations.Service {
	return r.reservationService
}

// WaitlistService exposes the waitlist service for background jobs.
func (r *Router) WaitlistService() waitlist.Service {
	return r.waitlistService
}

// Cache exposes the shared cache service (sweep and requeue locks).
func (r *Router) Cache() *cache.Service {
	return r.cache
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupEventRoutes(api)
		r.setupReservationRoutes(api)
		r.setupWaitlistRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketly-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketly-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	eventController := events.NewController(r.eventService)
	events.SetupEventRoutes(rg, eventController)
}

func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	reservationController := reservations.NewController(r.reservationService)
	reservations.SetupReservationRoutes(rg, reservationController, r.config)
}

func (r *Router) setupWaitlistRoutes(rg *gin.RouterGroup) {
	waitlistController := waitlist.NewController(r.waitlistService)
	waitlist.SetupWaitlistRoutes(rg, waitlistController, r.config)
}
