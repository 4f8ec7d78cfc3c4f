package reservations

import (
	"net/http"
	"strconv"

	"ticketly/internal/shared/apperrors"
	"ticketly/internal/shared/middleware"
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

// CreateReservation handles POST /reservations
func (ctrl *Controller) CreateReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	userID, err := middleware.SubjectID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	reservation, err := ctrl.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Reservation created", toResponse(reservation))
}

// GetReservation handles GET /reservations/:id
func (ctrl *Controller) GetReservation(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID, err := middleware.SubjectID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	reservation, err := ctrl.service.Get(c.Request.Context(), userID, middleware.SubjectRole(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Reservation retrieved", toResponse(reservation))
}

// ListReservations handles GET /reservations
func (ctrl *Controller) ListReservations(c *gin.Context) {
	userID, err := middleware.SubjectID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reservations, err := ctrl.service.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Reservations retrieved", toResponseList(reservations))
}

// ConfirmReservation handles POST /reservations/:id/confirm
func (ctrl *Controller) ConfirmReservation(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID, err := middleware.SubjectID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	reservation, err := ctrl.service.Confirm(c.Request.Context(), userID, middleware.SubjectRole(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Reservation confirmed", toResponse(reservation))
}

// CancelReservation handles POST /reservations/:id/cancel
func (ctrl *Controller) CancelReservation(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID, err := middleware.SubjectID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	reservation, err := ctrl.service.Cancel(c.Request.Context(), userID, middleware.SubjectRole(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Reservation cancelled", toResponse(reservation))
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.NotFound("reservation not found")
	}
	return id, nil
}
