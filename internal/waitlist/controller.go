package waitlist

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

// HandleAction handles POST /waitlist, dispatching on the action field.
func (ctrl *Controller) HandleAction(c *gin.Context) {
	var req WaitlistActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	userID, err := middleware.SubjectID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch req.Action {
	case ActionJoin:
		ctrl.join(c, userID, req)
	case ActionLeave:
		ctrl.leave(c, userID, req)
	case ActionNotifyAvailable:
		ctrl.notifyAvailable(c, userID, req)
	default:
		response.RespondJSON(c, "error", http.StatusBadRequest, "Unknown action", nil, nil)
	}
}

func (ctrl *Controller) join(c *gin.Context, userID uuid.UUID, req WaitlistActionRequest) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := ctrl.service.Join(c.Request.Context(), userID, JoinWaitlistRequest{
		EventID:  req.EventID,
		TierID:   req.TierID,
		Quantity: req.Quantity,
		Priority: req.Priority,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Joined waitlist", JoinWaitlistResponse{
		Entry:    toEntryResponse(result.Entry),
		Position: result.Position,
	})
}

func (ctrl *Controller) leave(c *gin.Context, userID uuid.UUID, req WaitlistActionRequest) {
	left, err := ctrl.service.Leave(c.Request.Context(), userID, req.EventID, req.TierID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Left waitlist"
	if !left {
		message = "No active waitlist entry"
	}
	response.Success(c, http.StatusOK, message, nil)
}

func (ctrl *Controller) notifyAvailable(c *gin.Context, userID uuid.UUID, req WaitlistActionRequest) {
	if req.TierID == nil {
		response.Error(c, apperrors.Conflict("tier_id is required for notify_available"))
		return
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	notified, err := ctrl.service.NotifyAvailable(c.Request.Context(), userID,
		middleware.SubjectRole(c), req.EventID, *req.TierID, quantity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Waitlist notified", NotifyAvailableResponse{Notified: notified})
}

// GetWaitlist handles GET /waitlist. With event_id it returns the ordered
// queue for that partition plus the caller's position; without it, the
// caller's own memberships across events.
func (ctrl *Controller) GetWaitlist(c *gin.Context) {
	userID, err := middleware.SubjectID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	eventIDStr := c.Query("event_id")
	if eventIDStr == "" {
		entries, err := ctrl.service.ListForUser(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, "Waitlist memberships retrieved",
			WaitlistViewResponse{Entries: toEntryResponseList(entries)})
		return
	}

	eventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event_id", nil, nil)
		return
	}

	var tierID *uuid.UUID
	if tierIDStr := c.Query("tier_id"); tierIDStr != "" {
		parsed, err := uuid.Parse(tierIDStr)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid tier_id", nil, nil)
			return
		}
		tierID = &parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := ctrl.service.List(c.Request.Context(), eventID, tierID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	position, err := ctrl.service.Position(c.Request.Context(), userID, eventID, tierID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Waitlist retrieved", WaitlistViewResponse{
		Entries:  toEntryResponseList(entries),
		Position: position,
	})
}
