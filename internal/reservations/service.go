package reservations

import (
	"context"
	"fmt"
	"time"

	"ticketly/internal/shared/apperrors"
	"ticketly/internal/shared/clock"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/middleware"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// WaitlistGateway is the slice of the waitlist service the reservation
// lifecycle drives: claiming an offer on hold creation, and offering
// freed capacity when holds are released.
type WaitlistGateway interface {
	MarkFulfilled(ctx context.Context, userID, eventID, tierID uuid.UUID) error
	OfferFreedCapacity(ctx context.Context, eventID, tierID uuid.UUID, freed int) (int, error)
}

// Service interface defines reservation business operations
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateReservationRequest) (*Reservation, error)
	Get(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*Reservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Reservation, error)
	Confirm(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*Reservation, error)
	Cancel(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*Reservation, error)
	SweepExpired(ctx context.Context) (SweepResult, error)
}

type service struct {
	repo     Repository
	waitlist WaitlistGateway
	clock    clock.Clock
	config   config.ReservationConfig
	logger   *logger.Logger
}

// NewService creates a new reservations service. waitlist may be nil when
// the subsystem runs without waitlist integration.
func NewService(repo Repository, waitlist WaitlistGateway, clk clock.Clock, cfg config.ReservationConfig, log *logger.Logger) Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:     repo,
		waitlist: waitlist,
		clock:    clk,
		config:   cfg,
		logger:   log,
	}
}

// Create acquires a hold on the requested tier. Availability is checked
// and decremented atomically in the repository, so concurrent creates can
// never over-allocate even when they race for the last seats.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateReservationRequest) (*Reservation, error) {
	now := s.clock.Now()
	reservation := &Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		EventID:   req.EventID,
		TierID:    req.TierID,
		Quantity:  req.Quantity,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.HoldTTL),
		UpdatedAt: now,
	}

	if err := s.repo.CreateHold(ctx, reservation); err != nil {
		return nil, err
	}

	s.logger.LogReservationCreated(ctx, reservation.ID.String(), reservation.EventID.String(),
		reservation.TierID.String(), reservation.UserID.String(), reservation.Quantity)

	// If the subject was waiting on this target, the new hold consumes
	// their offer. Best effort: the hold stands either way.
	if s.waitlist != nil {
		if err := s.waitlist.MarkFulfilled(ctx, userID, req.EventID, req.TierID); err != nil {
			s.logger.ErrorWithContext(ctx, "failed to mark waitlist entry fulfilled", err,
				map[string]interface{}{"user_id": userID.String(), "event_id": req.EventID.String()})
		}
	}

	return reservation, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*Reservation, error) {
	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(reservation, userID, role); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Confirm finalizes a pending hold into a committed allocation. The TTL is
// re-validated inside the conditional transition, so confirm and the reaper
// can race on the same hold and exactly one of them wins.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*Reservation, error) {
	now := s.clock.Now()
	reservation, applied, err := s.repo.Confirm(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(reservation, userID, role); err != nil {
		return nil, err
	}

	if applied {
		s.logger.LogReservationTransition(ctx, reservation.ID.String(),
			string(StatusPending), string(StatusConfirmed))
		return reservation, nil
	}

	switch reservation.Status {
	case StatusConfirmed:
		// Already confirmed; repeat confirms are no-ops.
		return reservation, nil
	case StatusCancelled:
		return reservation, nil
	case StatusExpired:
		return nil, apperrors.Conflict("reservation hold has already expired")
	case StatusPending:
		// Still pending but the TTL lapsed before the reaper got to it.
		return nil, apperrors.Conflict("reservation hold has already expired")
	default:
		return nil, apperrors.Internal(fmt.Sprintf("reservation in unexpected status %s", reservation.Status), nil)
	}
}

// Cancel releases a pending or confirmed reservation. Freed capacity is
// offered to the waitlist out of band.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*Reservation, error) {
	now := s.clock.Now()

	// Ownership check before mutating; the transition itself is still
	// arbitrated by the conditional update.
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(existing, userID, role); err != nil {
		return nil, err
	}

	reservation, applied, err := s.repo.Cancel(ctx, id, now)
	if err != nil {
		return nil, err
	}

	if !applied {
		// EXPIRED or already CANCELLED: both are settled states and the
		// cancel request is satisfied by them.
		return reservation, nil
	}

	s.logger.LogReservationTransition(ctx, reservation.ID.String(),
		string(existing.Status), string(StatusCancelled))

	s.offerFreed(reservation.EventID, reservation.TierID, reservation.Quantity)
	return reservation, nil
}

// SweepExpired runs one reaper pass: reclaim lapsed pending holds and
// offer the freed quantities to the waitlist, aggregated per target.
func (s *service) SweepExpired(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	result := SweepResult{FreedByTarget: make(map[Target]int)}

	reaped, err := s.repo.ExpireBatch(ctx, now, s.config.SweepBatchSize)
	for _, hold := range reaped {
		result.Reaped++
		result.FreedByTarget[Target{EventID: hold.EventID, TierID: hold.TierID}] += hold.Quantity
	}
	if err != nil {
		return result, fmt.Errorf("sweep pass failed: %w", err)
	}

	for target, freed := range result.FreedByTarget {
		s.offerFreed(target.EventID, target.TierID, freed)
	}

	if result.Reaped > 0 {
		freedByTarget := make(map[string]int, len(result.FreedByTarget))
		for target, freed := range result.FreedByTarget {
			freedByTarget[target.String()] = freed
		}
		s.logger.LogSweepSummary(ctx, result.Reaped, freedByTarget)
	}

	return result, nil
}

// offerFreed notifies the waitlist about reclaimed capacity without
// blocking the caller. Notification is best effort; a failure here never
// rolls back the release.
func (s *service) offerFreed(eventID, tierID uuid.UUID, freed int) {
	if s.waitlist == nil || freed <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.waitlist.OfferFreedCapacity(ctx, eventID, tierID, freed); err != nil {
			s.logger.ErrorWithContext(ctx, "failed to offer freed capacity to waitlist", err,
				map[string]interface{}{"event_id": eventID.String(), "tier_id": tierID.String(), "freed": freed})
		}
	}()
}

func (s *service) authorize(reservation *Reservation, userID uuid.UUID, role string) error {
	if role == middleware.RoleAdmin {
		return nil
	}
	if reservation.UserID != userID {
		return apperrors.Forbidden("reservation belongs to another user")
	}
	return nil
}
