package waitlist

import (
	"context"
	"fmt"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/shared/apperrors"
	"ticketly/internal/shared/clock"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/middleware"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// Service interface defines waitlist business operations
type Service interface {
	Join(ctx context.Context, userID uuid.UUID, req JoinWaitlistRequest) (*JoinWaitlistResult, error)
	Leave(ctx context.Context, userID, eventID uuid.UUID, tierID *uuid.UUID) (bool, error)
	Position(ctx context.Context, userID, eventID uuid.UUID, tierID *uuid.UUID) (*int, error)
	List(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, limit, offset int) ([]WaitlistEntry, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]WaitlistEntry, error)
	NotifyAvailable(ctx context.Context, callerID uuid.UUID, role string, eventID, tierID uuid.UUID, quantity int) (int, error)

	// Gateway methods driven by the reservation lifecycle.
	OfferFreedCapacity(ctx context.Context, eventID, tierID uuid.UUID, freed int) (int, error)
	MarkFulfilled(ctx context.Context, userID, eventID, tierID uuid.UUID) error

	// RequeueExpiredOffers is driven by the background requeue job.
	RequeueExpiredOffers(ctx context.Context) (int64, error)
}

// JoinWaitlistResult pairs the created entry with its initial position.
type JoinWaitlistResult struct {
	Entry    *WaitlistEntry
	Position int
}

type service struct {
	repo      Repository
	events    events.Repository
	publisher notifications.Publisher
	cache     *cache.Service
	clock     clock.Clock
	config    config.WaitlistConfig
	cacheTTL  time.Duration
	logger    *logger.Logger
}

// NewService creates a new waitlist service
func NewService(repo Repository, eventsRepo events.Repository, publisher notifications.Publisher,
	cacheService *cache.Service, clk clock.Clock, cfg config.WaitlistConfig,
	positionCacheTTL time.Duration, log *logger.Logger) Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if publisher == nil {
		publisher = notifications.NewNoopPublisher()
	}
	if cacheService == nil {
		cacheService = cache.New(nil, "ticketly")
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:      repo,
		events:    eventsRepo,
		publisher: publisher,
		cache:     cacheService,
		clock:     clk,
		config:    cfg,
		cacheTTL:  positionCacheTTL,
		logger:    log,
	}
}

// Join creates a WAITING entry for the caller. Duplicate active joins for
// the same (event, tier, subject) surface as Conflict via the partial
// unique index, never as a merged or updated entry.
func (s *service) Join(ctx context.Context, userID uuid.UUID, req JoinWaitlistRequest) (*JoinWaitlistResult, error) {
	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, apperrors.Conflict("unknown priority band")
	}
	if req.Quantity < 1 || req.Quantity > s.config.MaxQuantity {
		return nil, apperrors.Conflict(
			fmt.Sprintf("quantity must be between 1 and %d", s.config.MaxQuantity))
	}

	if _, err := s.events.GetEvent(ctx, req.EventID); err != nil {
		return nil, err
	}
	if req.TierID != nil {
		tier, err := s.events.GetTier(ctx, *req.TierID)
		if err != nil {
			return nil, err
		}
		if tier.EventID != req.EventID {
			return nil, apperrors.NotFound("ticket tier not found for event")
		}
	}

	waiting, err := s.repo.CountWaiting(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if s.config.MaxSize > 0 && waiting >= int64(s.config.MaxSize) {
		return nil, apperrors.Conflict("waitlist for this event is full")
	}

	now := s.clock.Now()
	entry := &WaitlistEntry{
		ID:           uuid.New(),
		EventID:      req.EventID,
		TierID:       req.TierID,
		UserID:       userID,
		Quantity:     req.Quantity,
		Priority:     priority,
		PriorityRank: priority.Rank(),
		Status:       StatusWaiting,
		JoinedAt:     now,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	position, err := s.computePosition(ctx, userID, req.EventID, req.TierID)
	if err != nil {
		// Entry stands; position is a derived read.
		s.logger.ErrorWithContext(ctx, "failed to compute waitlist position", err,
			map[string]interface{}{"entry_id": entry.ID.String()})
		position = 0
	}

	s.logger.LogWaitlistJoined(ctx, entry.ID.String(), entry.EventID.String(),
		entry.UserID.String(), position)
	return &JoinWaitlistResult{Entry: entry, Position: position}, nil
}

// Leave marks the caller's active entry LEFT. Leaving without an entry is
// not an error.
func (s *service) Leave(ctx context.Context, userID, eventID uuid.UUID, tierID *uuid.UUID) (bool, error) {
	left, err := s.repo.MarkLeft(ctx, eventID, tierID, userID, s.clock.Now())
	if err != nil {
		return false, err
	}
	if left {
		s.invalidatePosition(ctx, userID, eventID, tierID)
	}
	return left, nil
}

// Position returns the caller's 1-based rank in their partition, or nil
// when they are not waiting there. Served from the position cache when
// fresh enough; the database is the source of truth.
func (s *service) Position(ctx context.Context, userID, eventID uuid.UUID, tierID *uuid.UUID) (*int, error) {
	cacheKey := positionKey(userID, eventID, tierID)
	var cached int
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		if cached == 0 {
			return nil, nil
		}
		return &cached, nil
	}

	position, err := s.computePosition(ctx, userID, eventID, tierID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, position, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache waitlist position", "error", err.Error())
	}

	if position == 0 {
		return nil, nil
	}
	return &position, nil
}

func (s *service) List(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, limit, offset int) ([]WaitlistEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListWaiting(ctx, eventID, tierID, limit, offset)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]WaitlistEntry, error) {
	return s.repo.ListByUser(ctx, userID)
}

// NotifyAvailable is the operator-triggered offer path. Only the event's
// organizer or an admin may fire it.
func (s *service) NotifyAvailable(ctx context.Context, callerID uuid.UUID, role string, eventID, tierID uuid.UUID, quantity int) (int, error) {
	if quantity < 1 {
		return 0, apperrors.Conflict("quantity must be positive")
	}

	if role != middleware.RoleAdmin {
		isOrganizer, err := s.events.IsOrganizer(ctx, eventID, callerID)
		if err != nil {
			return 0, err
		}
		if !isOrganizer {
			return 0, apperrors.Forbidden("only the event organizer or an admin may notify the waitlist")
		}
	}

	return s.OfferFreedCapacity(ctx, eventID, tierID, quantity)
}

// OfferFreedCapacity walks the partition in ranking order and offers the
// freed quantity to as many entries as it covers, strictly in order: the
// pass stops at the first entry whose request no longer fits, so nobody
// is jumped. Each entry is handled in isolation — a failure on one never
// blocks the rest.
func (s *service) OfferFreedCapacity(ctx context.Context, eventID, tierID uuid.UUID, freed int) (int, error) {
	if freed <= 0 {
		return 0, nil
	}

	candidates, err := s.repo.ListWaitingForOffer(ctx, eventID, tierID)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.config.NotifyWindow)
	remaining := freed
	notified := 0

	for i := range candidates {
		entry := &candidates[i]
		if entry.Quantity > remaining {
			break
		}

		ok, err := s.repo.MarkNotified(ctx, entry.ID, now)
		if err != nil {
			s.logger.ErrorWithContext(ctx, "failed to notify waitlist entry", err,
				map[string]interface{}{"entry_id": entry.ID.String()})
			continue
		}
		if !ok {
			// A concurrent pass or a leave got here first.
			continue
		}

		record := &NotificationRecord{
			ID:           uuid.New(),
			EntryID:      entry.ID,
			EventID:      entry.EventID,
			TierID:       entry.TierID,
			UserID:       entry.UserID,
			Quantity:     entry.Quantity,
			DispatchedAt: now,
		}
		if err := s.repo.CreateNotificationRecord(ctx, record); err != nil {
			s.logger.ErrorWithContext(ctx, "failed to persist notification record", err,
				map[string]interface{}{"entry_id": entry.ID.String()})
		}

		intent := &notifications.AvailabilityIntent{
			ID:        record.ID,
			EntryID:   entry.ID,
			UserID:    entry.UserID,
			EventID:   entry.EventID,
			TierID:    entry.TierID,
			Priority:  string(entry.Priority),
			Quantity:  entry.Quantity,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		if err := s.publisher.PublishIntent(ctx, intent); err != nil {
			// The NOTIFIED row and its record survive; delivery retries
			// belong to the downstream consumer pipeline.
			s.logger.ErrorWithContext(ctx, "failed to publish availability intent", err,
				map[string]interface{}{"entry_id": entry.ID.String()})
		}

		s.logger.LogWaitlistNotified(ctx, entry.ID.String(), entry.EventID.String(),
			entry.UserID.String(), entry.Quantity)
		s.invalidatePosition(ctx, entry.UserID, entry.EventID, entry.TierID)

		remaining -= entry.Quantity
		notified++
		if remaining == 0 {
			break
		}
	}

	return notified, nil
}

// MarkFulfilled settles the subject's NOTIFIED entry once they hold a
// reservation on the target. No entry is not an error: most reservations
// never touched the waitlist.
func (s *service) MarkFulfilled(ctx context.Context, userID, eventID, tierID uuid.UUID) error {
	entry, fulfilled, err := s.repo.MarkFulfilled(ctx, eventID, tierID, userID, s.clock.Now())
	if err != nil {
		return err
	}
	if fulfilled {
		s.logger.Info("waitlist entry fulfilled",
			"entry_id", entry.ID.String(), "user_id", userID.String())
		s.invalidatePosition(ctx, userID, eventID, entry.TierID)
	}
	return nil
}

// RequeueExpiredOffers moves entries whose offer lapsed back to WAITING
// with a fresh joined_at.
func (s *service) RequeueExpiredOffers(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.config.NotifyWindow)
	requeued, err := s.repo.RequeueExpiredOffers(ctx, cutoff, now)
	if err != nil {
		return 0, err
	}
	if requeued > 0 {
		s.logger.Info("requeued lapsed availability offers", "count", requeued)
	}
	return requeued, nil
}

func (s *service) computePosition(ctx context.Context, userID, eventID uuid.UUID, tierID *uuid.UUID) (int, error) {
	entries, err := s.repo.ListWaiting(ctx, eventID, tierID, 0, 0)
	if err != nil {
		return 0, err
	}
	return PositionOf(entries, userID), nil
}

func (s *service) invalidatePosition(ctx context.Context, userID, eventID uuid.UUID, tierID *uuid.UUID) {
	if err := s.cache.Delete(ctx, positionKey(userID, eventID, tierID)); err != nil {
		s.logger.Warn("failed to invalidate position cache", "error", err.Error())
	}
}

func positionKey(userID, eventID uuid.UUID, tierID *uuid.UUID) string {
	tier := "any"
	if tierID != nil {
		tier = tierID.String()
	}
	return fmt.Sprintf("waitlist:position:%s:%s:%s", eventID, tier, userID)
}
