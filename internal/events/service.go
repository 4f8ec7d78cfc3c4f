package events

import (
	"context"

	"github.com/google/uuid"
)

// Service interface defines read operations on the event boundary
type Service interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetAvailability(ctx context.Context, eventID uuid.UUID) (*AvailabilityView, error)
}

// AvailabilityView is the public snapshot of an event's remaining supply.
// It is advisory: admission is decided by the reservation path, not here.
type AvailabilityView struct {
	Event *Event       `json:"event"`
	Tiers []TierStatus `json:"tiers"`
}

type TierStatus struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Held      int       `json:"held"`
	Committed int       `json:"committed"`
	Available int       `json:"available"`
}

type service struct {
	repo Repository
}

// NewService creates a new events service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.GetEvent(ctx, id)
}

func (s *service) GetAvailability(ctx context.Context, eventID uuid.UUID) (*AvailabilityView, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tiers, err := s.repo.ListTiers(ctx, eventID)
	if err != nil {
		return nil, err
	}

	view := &AvailabilityView{
		Event: event,
		Tiers: make([]TierStatus, 0, len(tiers)),
	}
	for i := range tiers {
		t := &tiers[i]
		view.Tiers = append(view.Tiers, TierStatus{
			ID:        t.ID,
			Name:      t.Name,
			Capacity:  t.Capacity,
			Held:      t.HeldCount,
			Committed: t.CommittedCount,
			Available: t.Available(),
		})
	}
	return view, nil
}
