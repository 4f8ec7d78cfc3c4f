package events

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
	EventStatusCompleted EventStatus = "COMPLETED"
)

// Event metadata is owned by an external catalogue service; these rows are
// the slice this service needs for capacity accounting and organizer checks.
type Event struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string      `json:"name" gorm:"not null;size:255"`
	Venue     string      `json:"venue" gorm:"size:255"`
	DateTime  time.Time   `json:"date_time" gorm:"not null"`
	Status    EventStatus `json:"status" gorm:"type:varchar(20);default:'PUBLISHED'"`
	CreatedBy uuid.UUID   `json:"created_by" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TicketTier is a purchasable category of inventory within an event.
// Capacity accounting invariant: held_count + committed_count <= capacity,
// enforced by a CHECK constraint and by conditional updates in the
// reservations repository — nothing else may touch the counters.
type TicketTier struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID        uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	Name           string    `json:"name" gorm:"not null;size:100"`
	Capacity       int       `json:"capacity" gorm:"not null;check:capacity > 0"`
	HeldCount      int       `json:"held_count" gorm:"not null;default:0"`
	CommittedCount int       `json:"committed_count" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Available returns the quantity still open for new holds.
func (t *TicketTier) Available() int {
	return t.Capacity - t.HeldCount - t.CommittedCount
}
