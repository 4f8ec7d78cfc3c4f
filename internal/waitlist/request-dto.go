package waitlist

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Waitlist action verbs carried in the write endpoint's discriminator.
const (
	ActionJoin            = "join"
	ActionLeave           = "leave"
	ActionNotifyAvailable = "notify_available"
)

// WaitlistActionRequest is the write-side envelope: one endpoint, the
// action field selects the operation. Unknown actions are rejected by
// binding before dispatch.
type WaitlistActionRequest struct {
	Action   string     `json:"action" binding:"required,oneof=join leave notify_available"`
	EventID  uuid.UUID  `json:"event_id" binding:"required"`
	TierID   *uuid.UUID `json:"tier_id,omitempty"`
	Quantity int        `json:"quantity,omitempty" binding:"omitempty,min=1,max=10"`
	Priority Priority   `json:"priority,omitempty" binding:"omitempty,priority"`
}

// JoinWaitlistRequest is the typed join variant the service consumes.
type JoinWaitlistRequest struct {
	EventID  uuid.UUID
	TierID   *uuid.UUID
	Quantity int
	Priority Priority
}

// PriorityValidator backs the custom `priority` binding tag.
func PriorityValidator(fl validator.FieldLevel) bool {
	return Priority(fl.Field().String()).IsValid()
}
