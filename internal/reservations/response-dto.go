package reservations

import (
	"time"

	"github.com/google/uuid"
)

type ReservationResponse struct {
	ID        uuid.UUID         `json:"id"`
	EventID   uuid.UUID         `json:"event_id"`
	TierID    uuid.UUID         `json:"tier_id"`
	Quantity  int               `json:"quantity"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func toResponse(r *Reservation) ReservationResponse {
	return ReservationResponse{
		ID:        r.ID,
		EventID:   r.EventID,
		TierID:    r.TierID,
		Quantity:  r.Quantity,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

func toResponseList(reservations []Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, toResponse(&reservations[i]))
	}
	return out
}
