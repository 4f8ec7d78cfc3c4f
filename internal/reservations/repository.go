package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines data access for reservations. Every method
// that moves tier counters runs the row mutation and the counter mutation
// in one transaction, with conditional updates doing the arbitration.
type Repository interface {
	CreateHold(ctx context.Context, reservation *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Reservation, error)
	Confirm(ctx context.Context, id uuid.UUID, now time.Time) (*Reservation, bool, error)
	Cancel(ctx context.Context, id uuid.UUID, now time.Time) (*Reservation, bool, error)
	ExpireBatch(ctx context.Context, now time.Time, limit int) ([]ReapedHold, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new reservations repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateHold atomically checks availability and acquires the hold. The
// conditional UPDATE on the tier row is the only admission gate: if the
// requested quantity no longer fits, zero rows match and nothing changes.
func (r *repository) CreateHold(ctx context.Context, reservation *Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&events.TicketTier{}).
			Where("id = ? AND event_id = ? AND capacity - held_count - committed_count >= ?",
				reservation.TierID, reservation.EventID, reservation.Quantity).
			Update("held_count", gorm.Expr("held_count + ?", reservation.Quantity))
		if result.Error != nil {
			return fmt.Errorf("failed to acquire hold on tier: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&events.TicketTier{}).
				Where("id = ? AND event_id = ?", reservation.TierID, reservation.EventID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check tier existence: %w", err)
			}
			if count == 0 {
				return apperrors.NotFound("ticket tier not found for event")
			}
			return apperrors.Conflict("insufficient capacity for requested quantity")
		}

		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("reservation not found")
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reservation, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Reservation, error) {
	var reservations []Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// Confirm attempts PENDING -> CONFIRMED. The WHERE clause re-validates the
// TTL against the database clock snapshot so a stale hold can never be
// confirmed, regardless of what the caller has cached. Returns the fresh
// row and whether this call applied the transition.
func (r *repository) Confirm(ctx context.Context, id uuid.UUID, now time.Time) (*Reservation, bool, error) {
	var reservation Reservation
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Reservation{}).
			Where("id = ? AND status = ? AND expires_at > ?", id, StatusPending, now).
			Updates(map[string]interface{}{
				"status":     StatusConfirmed,
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to confirm reservation: %w", result.Error)
		}

		if err := tx.Where("id = ?", id).First(&reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("reservation not found")
			}
			return fmt.Errorf("failed to load reservation: %w", err)
		}

		if result.RowsAffected == 0 {
			return nil
		}
		applied = true

		// Move quantity from held to committed; net availability unchanged.
		return tx.Model(&events.TicketTier{}).
			Where("id = ?", reservation.TierID).
			Updates(map[string]interface{}{
				"held_count":      gorm.Expr("held_count - ?", reservation.Quantity),
				"committed_count": gorm.Expr("committed_count + ?", reservation.Quantity),
			}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &reservation, applied, nil
}

// Cancel attempts PENDING -> CANCELLED first, then CONFIRMED -> CANCELLED.
// Whichever conditional matches releases the corresponding counter.
func (r *repository) Cancel(ctx context.Context, id uuid.UUID, now time.Time) (*Reservation, bool, error) {
	var reservation Reservation
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fromPending := tx.Model(&Reservation{}).
			Where("id = ? AND status = ?", id, StatusPending).
			Updates(map[string]interface{}{
				"status":     StatusCancelled,
				"updated_at": now,
			})
		if fromPending.Error != nil {
			return fmt.Errorf("failed to cancel reservation: %w", fromPending.Error)
		}

		counterColumn := "held_count"
		if fromPending.RowsAffected == 0 {
			fromConfirmed := tx.Model(&Reservation{}).
				Where("id = ? AND status = ?", id, StatusConfirmed).
				Updates(map[string]interface{}{
					"status":     StatusCancelled,
					"updated_at": now,
				})
			if fromConfirmed.Error != nil {
				return fmt.Errorf("failed to cancel reservation: %w", fromConfirmed.Error)
			}
			if fromConfirmed.RowsAffected == 0 {
				if err := tx.Where("id = ?", id).First(&reservation).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return apperrors.NotFound("reservation not found")
					}
					return fmt.Errorf("failed to load reservation: %w", err)
				}
				return nil
			}
			counterColumn = "committed_count"
		}

		applied = true
		if err := tx.Where("id = ?", id).First(&reservation).Error; err != nil {
			return fmt.Errorf("failed to load reservation: %w", err)
		}

		return tx.Model(&events.TicketTier{}).
			Where("id = ?", reservation.TierID).
			Update(counterColumn, gorm.Expr(counterColumn+" - ?", reservation.Quantity)).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &reservation, applied, nil
}

// ExpireBatch reclaims up to limit lapsed PENDING holds. Each hold is
// reaped in its own transaction with a conditional transition, so a
// concurrent confirm that wins the race simply makes that row a no-op
// here without aborting the rest of the batch.
func (r *repository) ExpireBatch(ctx context.Context, now time.Time, limit int) ([]ReapedHold, error) {
	var candidates []Reservation
	err := r.db.WithContext(ctx).
		Select("id").
		Where("status = ? AND expires_at <= ?", StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired holds: %w", err)
	}

	reaped := make([]ReapedHold, 0, len(candidates))
	for _, candidate := range candidates {
		var reservation Reservation
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&Reservation{}).
				Where("id = ? AND status = ? AND expires_at <= ?", candidate.ID, StatusPending, now).
				Updates(map[string]interface{}{
					"status":     StatusExpired,
					"updated_at": now,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to expire reservation: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				// Lost the race to a confirm or cancel; nothing to release.
				return nil
			}

			if err := tx.Where("id = ?", candidate.ID).First(&reservation).Error; err != nil {
				return fmt.Errorf("failed to load expired reservation: %w", err)
			}

			if err := tx.Model(&events.TicketTier{}).
				Where("id = ?", reservation.TierID).
				Update("held_count", gorm.Expr("held_count - ?", reservation.Quantity)).Error; err != nil {
				return fmt.Errorf("failed to release held capacity: %w", err)
			}

			reaped = append(reaped, ReapedHold{
				ReservationID: reservation.ID,
				EventID:       reservation.EventID,
				TierID:        reservation.TierID,
				Quantity:      reservation.Quantity,
			})
			return nil
		})
		if err != nil {
			return reaped, err
		}
	}
	return reaped, nil
}
