package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// At most one WAITING entry per (event, tier, subject). COALESCE folds
	// the nullable tier id into the uniqueness scope.
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_active_waitlist_membership
		ON waitlist_entries (event_id, COALESCE(tier_id, '00000000-0000-0000-0000-000000000000'::uuid), user_id)
		WHERE status = 'WAITING';
	`).Error
	if err != nil {
		return err
	}

	// Ranking scan: partition by (event, tier), ordered by priority band
	// then join time.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_waitlist_ranking
		ON waitlist_entries (event_id, tier_id, priority_rank DESC, joined_at ASC);
	`).Error
	if err != nil {
		return err
	}

	// Reaper scan: pending holds past their deadline.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservations_expiry_scan
		ON reservations (status, expires_at);
	`).Error
	if err != nil {
		return err
	}

	// Tier counters can never go negative or oversell capacity.
	err = db.Exec(`
		ALTER TABLE ticket_tiers
		DROP CONSTRAINT IF EXISTS tier_capacity_accounting;
	`).Error
	if err != nil {
		return err
	}

	return db.Exec(`
		ALTER TABLE ticket_tiers
		ADD CONSTRAINT tier_capacity_accounting
		CHECK (held_count >= 0 AND committed_count >= 0 AND held_count + committed_count <= capacity);
	`).Error
}
