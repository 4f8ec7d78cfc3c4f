package events

import (
	"net/http"

	"ticketly/internal/shared/apperrors"
	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

// GetEvent handles GET /events/:id
func (ctrl *Controller) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.NotFound("event not found"))
		return
	}

	event, err := ctrl.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Event retrieved", event)
}

// GetAvailability handles GET /events/:id/availability
func (ctrl *Controller) GetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.NotFound("event not found"))
		return
	}

	view, err := ctrl.service.GetAvailability(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Availability retrieved", view)
}
