package waitlist

import (
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWaitlistRoutes configures all waitlist-related routes
func SetupWaitlistRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	waitlist := rg.Group("/waitlist")
	waitlist.Use(middleware.JWTAuthWithConfig(cfg))
	{
		waitlist.POST("", controller.HandleAction)
		waitlist.GET("", controller.GetWaitlist)
	}
}
