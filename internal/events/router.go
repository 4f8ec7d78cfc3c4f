package events

import (
	"github.com/gin-gonic/gin"
)

// SetupEventRoutes configures the public event read routes
func SetupEventRoutes(rg *gin.RouterGroup, controller *Controller) {
	events := rg.Group("/events")
	{
		events.GET("/:id", controller.GetEvent)
		events.GET("/:id/availability", controller.GetAvailability)
	}
}
