package reservations

import (
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupReservationRoutes configures all reservation-related routes
func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	reservations := rg.Group("/reservations")
	reservations.Use(middleware.JWTAuthWithConfig(cfg))
	{
		reservations.POST("", controller.CreateReservation)
		reservations.GET("", controller.ListReservations)
		reservations.GET("/:id", controller.GetReservation)
		reservations.POST("/:id/confirm", controller.ConfirmReservation)
		reservations.POST("/:id/cancel", controller.CancelReservation)
	}
}
