package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AvailabilityIntent is the message published when a waitlist entry is
// offered freed capacity. Delivery (email, push, SMS) is owned by a
// downstream consumer; this subsystem only records the intent.
type AvailabilityIntent struct {
	ID        uuid.UUID  `json:"id"`
	EntryID   uuid.UUID  `json:"entry_id"`
	UserID    uuid.UUID  `json:"user_id"`
	EventID   uuid.UUID  `json:"event_id"`
	TierID    *uuid.UUID `json:"tier_id,omitempty"`
	Priority  string     `json:"priority"`
	Quantity  int        `json:"quantity"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToJSON serializes the intent for the wire.
func (i *AvailabilityIntent) ToJSON() ([]byte, error) {
	return json.Marshal(i)
}

// PartitionKey routes all intents for one user to the same partition so a
// consumer sees them in order.
func (i *AvailabilityIntent) PartitionKey() string {
	return i.UserID.String()
}
