package reservations

import "github.com/google/uuid"

type CreateReservationRequest struct {
	EventID  uuid.UUID `json:"event_id" binding:"required"`
	TierID   uuid.UUID `json:"tier_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1,max=10"`
}
