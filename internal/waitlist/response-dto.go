package waitlist

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistEntryResponse struct {
	ID         uuid.UUID      `json:"id"`
	EventID    uuid.UUID      `json:"event_id"`
	TierID     *uuid.UUID     `json:"tier_id,omitempty"`
	Quantity   int            `json:"quantity"`
	Priority   Priority       `json:"priority"`
	Status     WaitlistStatus `json:"status"`
	JoinedAt   time.Time      `json:"joined_at"`
	NotifiedAt *time.Time     `json:"notified_at,omitempty"`
}

// JoinWaitlistResponse reports the new entry and where it landed.
type JoinWaitlistResponse struct {
	Entry    WaitlistEntryResponse `json:"waitlist_entry"`
	Position int                   `json:"position"`
}

// WaitlistViewResponse is the read endpoint's payload: the ordered queue
// plus the caller's own rank (absent when they are not waiting).
type WaitlistViewResponse struct {
	Entries  []WaitlistEntryResponse `json:"entries"`
	Position *int                    `json:"position,omitempty"`
}

// NotifyAvailableResponse reports how many entries an offer pass reached.
type NotifyAvailableResponse struct {
	Notified int `json:"notified"`
}

func toEntryResponse(e *WaitlistEntry) WaitlistEntryResponse {
	return WaitlistEntryResponse{
		ID:         e.ID,
		EventID:    e.EventID,
		TierID:     e.TierID,
		Quantity:   e.Quantity,
		Priority:   e.Priority,
		Status:     e.Status,
		JoinedAt:   e.JoinedAt,
		NotifiedAt: e.NotifiedAt,
	}
}

func toEntryResponseList(entries []WaitlistEntry) []WaitlistEntryResponse {
	out := make([]WaitlistEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}
	return out
}
