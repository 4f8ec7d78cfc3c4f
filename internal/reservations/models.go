package reservations

import (
	"time"

	"github.com/google/uuid"
)

// Reservation represents a time-bounded soft hold on tier inventory.
// Terminal rows are retained for audit, never deleted.
type Reservation struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	EventID   uuid.UUID         `json:"event_id" gorm:"type:uuid;not null;index"`
	TierID    uuid.UUID         `json:"tier_id" gorm:"type:uuid;not null;index"`
	Quantity  int               `json:"quantity" gorm:"not null;check:quantity > 0"`
	Status    ReservationStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null"`
	ExpiresAt time.Time         `json:"expires_at" gorm:"not null"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsExpiredAt reports whether the hold's TTL has lapsed at the given
// instant. Purely data-driven; the reaper may not have swept yet.
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// ReapedHold records one reclaimed reservation from a sweep pass.
type ReapedHold struct {
	ReservationID uuid.UUID
	EventID       uuid.UUID
	TierID        uuid.UUID
	Quantity      int
}

// SweepResult aggregates a reaper pass for observability.
type SweepResult struct {
	Reaped        int
	FreedByTarget map[Target]int
}

// Target identifies the (event, tier) pair capacity accounting runs on.
type Target struct {
	EventID uuid.UUID
	TierID  uuid.UUID
}

func (t Target) String() string {
	return t.EventID.String() + "/" + t.TierID.String()
}
