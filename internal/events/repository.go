package events

import (
	"context"
	"errors"
	"fmt"

	"ticketly/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines read access to event/tier metadata
type Repository interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetTier(ctx context.Context, id uuid.UUID) (*TicketTier, error)
	ListTiers(ctx context.Context, eventID uuid.UUID) ([]TicketTier, error)
	IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new events repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event not found")
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *repository) GetTier(ctx context.Context, id uuid.UUID) (*TicketTier, error) {
	var tier TicketTier
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("ticket tier not found")
		}
		return nil, fmt.Errorf("failed to get ticket tier: %w", err)
	}
	return &tier, nil
}

func (r *repository) ListTiers(ctx context.Context, eventID uuid.UUID) ([]TicketTier, error) {
	var tiers []TicketTier
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("name ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket tiers: %w", err)
	}
	return tiers, nil
}

// IsOrganizer reports whether userID owns the event. Organization-level
// membership lives in an external collaborator; event ownership is the
// slice of it persisted here.
func (r *repository) IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ? AND created_by = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check event ownership: %w", err)
	}
	return count > 0, nil
}
