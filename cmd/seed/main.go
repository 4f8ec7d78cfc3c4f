package main

import (
	"fmt"
	"log"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/waitlist"

	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Ticketly Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"notification_records",
		"waitlist_entries",
		"reservations",
		"ticket_tiers",
		"events",
	}

	for _, table := range tables {
		if err := s.db.GetPostgreSQL().Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
		fmt.Printf("  🗑️  Truncated %s\n", table)
	}
	return nil
}

// SeedAll creates a small but realistic dataset: two events, tiers of
// varying scarcity, and a populated waitlist on the sold-out tier.
func (s *Seeder) SeedAll() error {
	organizerID := uuid.New()
	now := time.Now().UTC()

	concert := events.Event{
		ID:        uuid.New(),
		Name:      "Midnight Orchestra — City Hall",
		Venue:     "City Hall Arena",
		DateTime:  now.AddDate(0, 1, 0),
		Status:    events.EventStatusPublished,
		CreatedBy: organizerID,
	}
	conference := events.Event{
		ID:        uuid.New(),
		Name:      "DevConf 2026",
		Venue:     "Harborview Convention Center",
		DateTime:  now.AddDate(0, 2, 0),
		Status:    events.EventStatusPublished,
		CreatedBy: organizerID,
	}
	if err := s.db.GetPostgreSQL().Create([]*events.Event{&concert, &conference}).Error; err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}
	fmt.Println("  🎪 Seeded 2 events")

	vip := events.TicketTier{
		ID:       uuid.New(),
		EventID:  concert.ID,
		Name:     "VIP",
		Capacity: 20,
	}
	general := events.TicketTier{
		ID:       uuid.New(),
		EventID:  concert.ID,
		Name:     "General Admission",
		Capacity: 500,
	}
	// Fully committed tier so offer flows are exercisable right away.
	soldOut := events.TicketTier{
		ID:             uuid.New(),
		EventID:        conference.ID,
		Name:           "Early Bird",
		Capacity:       50,
		CommittedCount: 50,
	}
	standard := events.TicketTier{
		ID:       uuid.New(),
		EventID:  conference.ID,
		Name:     "Standard",
		Capacity: 300,
	}
	tiers := []*events.TicketTier{&vip, &general, &soldOut, &standard}
	if err := s.db.GetPostgreSQL().Create(tiers).Error; err != nil {
		return fmt.Errorf("failed to seed ticket tiers: %w", err)
	}
	fmt.Printf("  🎟️  Seeded %d ticket tiers\n", len(tiers))

	entries := make([]*waitlist.WaitlistEntry, 0, 6)
	priorities := []waitlist.Priority{
		waitlist.PriorityNormal,
		waitlist.PriorityHigh,
		waitlist.PriorityNormal,
		waitlist.PriorityLow,
		waitlist.PriorityNormal,
		waitlist.PriorityHigh,
	}
	for i, priority := range priorities {
		tierID := soldOut.ID
		entries = append(entries, &waitlist.WaitlistEntry{
			ID:           uuid.New(),
			EventID:      conference.ID,
			TierID:       &tierID,
			UserID:       uuid.New(),
			Quantity:     1 + i%2,
			Priority:     priority,
			PriorityRank: priority.Rank(),
			Status:       waitlist.StatusWaiting,
			JoinedAt:     now.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := s.db.GetPostgreSQL().Create(entries).Error; err != nil {
		return fmt.Errorf("failed to seed waitlist entries: %w", err)
	}
	fmt.Printf("  ⏳ Seeded %d waitlist entries on %s\n", len(entries), soldOut.Name)

	fmt.Printf("\n  Organizer ID: %s\n", organizerID)
	fmt.Printf("  Sold-out tier: %s (event %s)\n", soldOut.ID, conference.ID)
	return nil
}
