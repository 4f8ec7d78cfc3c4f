package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistStatus represents the state of a waitlist entry
type WaitlistStatus string

const (
	StatusWaiting   WaitlistStatus = "WAITING"
	StatusNotified  WaitlistStatus = "NOTIFIED"
	StatusFulfilled WaitlistStatus = "FULFILLED"
	StatusLeft      WaitlistStatus = "LEFT"
)

// CanTransitionTo checks if the status can transition to the target status
func (s WaitlistStatus) CanTransitionTo(target WaitlistStatus) bool {
	validTransitions := map[WaitlistStatus][]WaitlistStatus{
		StatusWaiting:   {StatusNotified, StatusLeft},
		StatusNotified:  {StatusFulfilled, StatusWaiting, StatusLeft},
		StatusFulfilled: {},
		StatusLeft:      {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Priority is the coarse fairness band of an entry. Within a band the
// queue is strictly first-in-first-out.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// Rank maps a priority onto the numeric column the ranking index sorts by.
// Higher rank wins.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IsValid checks if the priority is a known band
func (p Priority) IsValid() bool {
	return p.Rank() > 0
}

// WaitlistEntry is a durable claim on future capacity for a target. A nil
// TierID means the subject will take any tier of the event.
type WaitlistEntry struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID      uuid.UUID      `json:"event_id" gorm:"type:uuid;not null;index"`
	TierID       *uuid.UUID     `json:"tier_id,omitempty" gorm:"type:uuid;index"`
	UserID       uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Quantity     int            `json:"quantity" gorm:"not null;check:quantity > 0"`
	Priority     Priority       `json:"priority" gorm:"type:varchar(10);not null;default:'NORMAL'"`
	PriorityRank int            `json:"-" gorm:"not null;default:2"`
	Status       WaitlistStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	JoinedAt     time.Time      `json:"joined_at" gorm:"not null"`
	NotifiedAt   *time.Time     `json:"notified_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// NotificationRecord is an append-only audit row, one per dispatched
// availability offer. Its existence is what distinguishes "offered and
// waiting again" from "never offered".
type NotificationRecord struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntryID      uuid.UUID  `json:"entry_id" gorm:"type:uuid;not null;index"`
	EventID      uuid.UUID  `json:"event_id" gorm:"type:uuid;not null;index"`
	TierID       *uuid.UUID `json:"tier_id,omitempty" gorm:"type:uuid"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null"`
	Quantity     int        `json:"quantity" gorm:"not null"`
	DispatchedAt time.Time  `json:"dispatched_at" gorm:"not null;index"`
}
