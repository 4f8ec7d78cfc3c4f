package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketly/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines data access for the waitlist ledger.
// Ordering in list methods follows the ranking rule: priority_rank DESC,
// joined_at ASC, id ASC — the same order the partial index serves.
type Repository interface {
	Create(ctx context.Context, entry *WaitlistEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error)
	FindActive(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, userID uuid.UUID) (*WaitlistEntry, error)
	MarkLeft(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, userID uuid.UUID, now time.Time) (bool, error)
	ListWaiting(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, limit, offset int) ([]WaitlistEntry, error)
	ListWaitingForOffer(ctx context.Context, eventID, tierID uuid.UUID) ([]WaitlistEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]WaitlistEntry, error)
	CountWaiting(ctx context.Context, eventID uuid.UUID) (int64, error)
	MarkNotified(ctx context.Context, entryID uuid.UUID, now time.Time) (bool, error)
	MarkFulfilled(ctx context.Context, eventID, tierID, userID uuid.UUID, now time.Time) (*WaitlistEntry, bool, error)
	RequeueExpiredOffers(ctx context.Context, cutoff, now time.Time) (int64, error)
	CreateNotificationRecord(ctx context.Context, record *NotificationRecord) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new waitlist repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

const rankingOrder = "priority_rank DESC, joined_at ASC, id ASC"

// tierScope narrows a query to one partition; nil selects the event-wide
// partition, not all tiers.
func tierScope(tierID *uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tierID == nil {
			return db.Where("tier_id IS NULL")
		}
		return db.Where("tier_id = ?", *tierID)
	}
}

// Create inserts a new entry. The partial unique index on
// (event_id, tier_id, user_id) WHERE status = 'WAITING' turns a duplicate
// active join into a Conflict without any read-then-write race.
func (r *repository) Create(ctx context.Context, entry *WaitlistEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "unique_active_waitlist_membership") {
			return apperrors.Conflict("already on the waitlist for this event and tier")
		}
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("waitlist entry not found")
		}
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *repository) FindActive(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, userID uuid.UUID) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).
		Scopes(tierScope(tierID)).
		Where("event_id = ? AND user_id = ? AND status = ?", eventID, userID, StatusWaiting).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no active waitlist entry")
		}
		return nil, fmt.Errorf("failed to find waitlist entry: %w", err)
	}
	return &entry, nil
}

// MarkLeft transitions the caller's active entry to LEFT. Both WAITING and
// NOTIFIED entries can leave; returns false when there was nothing to do.
func (r *repository) MarkLeft(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, userID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Scopes(tierScope(tierID)).
		Where("event_id = ? AND user_id = ? AND status IN ?",
			eventID, userID, []WaitlistStatus{StatusWaiting, StatusNotified}).
		Updates(map[string]interface{}{
			"status":     StatusLeft,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to leave waitlist: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListWaiting(ctx context.Context, eventID uuid.UUID, tierID *uuid.UUID, limit, offset int) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	query := r.db.WithContext(ctx).
		Scopes(tierScope(tierID)).
		Where("event_id = ? AND status = ?", eventID, StatusWaiting).
		Order(rankingOrder)
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	return entries, nil
}

// ListWaitingForOffer returns the entries eligible for capacity freed on a
// specific tier: the tier's own partition merged with the event-wide
// (tier_id IS NULL) partition, in ranking order.
func (r *repository) ListWaitingForOffer(ctx context.Context, eventID, tierID uuid.UUID) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ? AND (tier_id = ? OR tier_id IS NULL)",
			eventID, StatusWaiting, tierID).
		Order(rankingOrder).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list offer candidates: %w", err)
	}
	return entries, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID,
			[]WaitlistStatus{StatusWaiting, StatusNotified}).
		Order("joined_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user waitlist entries: %w", err)
	}
	return entries, nil
}

func (r *repository) CountWaiting(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("event_id = ? AND status = ?", eventID, StatusWaiting).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist entries: %w", err)
	}
	return count, nil
}

// MarkNotified transitions WAITING -> NOTIFIED. The conditional update
// keeps concurrent offer passes from double-notifying one entry.
func (r *repository) MarkNotified(ctx context.Context, entryID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("id = ? AND status = ?", entryID, StatusWaiting).
		Updates(map[string]interface{}{
			"status":      StatusNotified,
			"notified_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark entry notified: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkFulfilled settles the user's NOTIFIED entry for the event once they
// hold a reservation. An entry pinned to the exact tier wins over an
// event-wide one.
func (r *repository) MarkFulfilled(ctx context.Context, eventID, tierID, userID uuid.UUID, now time.Time) (*WaitlistEntry, bool, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ? AND status = ? AND (tier_id = ? OR tier_id IS NULL)",
			eventID, userID, StatusNotified, tierID).
		Order("tier_id ASC NULLS LAST").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to find notified entry: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("id = ? AND status = ?", entry.ID, StatusNotified).
		Updates(map[string]interface{}{
			"status":     StatusFulfilled,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to mark entry fulfilled: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	entry.Status = StatusFulfilled
	return &entry, true, nil
}

// RequeueExpiredOffers returns NOTIFIED entries whose grace window lapsed
// to WAITING. joined_at is reset, so a lapsed offer costs the subject
// their old position.
func (r *repository) RequeueExpiredOffers(ctx context.Context, cutoff, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("status = ? AND notified_at <= ?", StatusNotified, cutoff).
		Updates(map[string]interface{}{
			"status":      StatusWaiting,
			"notified_at": nil,
			"joined_at":   now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to requeue expired offers: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) CreateNotificationRecord(ctx context.Context, record *NotificationRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}
