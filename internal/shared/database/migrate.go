package database

import (
	"ticketly/internal/events"
	"ticketly/internal/reservations"
	"ticketly/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&events.Event{},
		&events.TicketTier{},
		&reservations.Reservation{},
		&waitlist.WaitlistEntry{},
		&waitlist.NotificationRecord{},
	)
}
