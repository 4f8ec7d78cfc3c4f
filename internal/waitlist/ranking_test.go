package waitlist

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func entry(priority Priority, joinedAt time.Time, userID uuid.UUID) WaitlistEntry {
	return WaitlistEntry{
		ID:           uuid.New(),
		EventID:      uuid.New(),
		UserID:       userID,
		Quantity:     1,
		Priority:     priority,
		PriorityRank: priority.Rank(),
		Status:       StatusWaiting,
		JoinedAt:     joinedAt,
	}
}

func TestRankPriorityDominatesJoinOrder(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t0.Add(2 * time.Minute)

	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()

	// B joined first but A carries the higher band; C joined last.
	entries := []WaitlistEntry{
		entry(PriorityNormal, t2, userC),
		entry(PriorityHigh, t1, userA),
		entry(PriorityNormal, t0, userB),
	}

	Rank(entries)

	got := []uuid.UUID{entries[0].UserID, entries[1].UserID, entries[2].UserID}
	want := []uuid.UUID{userA, userB, userC}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got user %s, want %s", i+1, got[i], want[i])
		}
	}
}

func TestRankIsDeterministicOnEqualFields(t *testing.T) {
	joined := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := entry(PriorityNormal, joined, uuid.New())
	b := entry(PriorityNormal, joined, uuid.New())

	first := []WaitlistEntry{a, b}
	second := []WaitlistEntry{b, a}
	Rank(first)
	Rank(second)

	if first[0].ID != second[0].ID || first[1].ID != second[1].ID {
		t.Fatal("equal priority and joined_at must still order deterministically")
	}
}

func TestPositionOf(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	userB := uuid.New()

	entries := []WaitlistEntry{
		entry(PriorityNormal, t0, userB),
		entry(PriorityHigh, t0.Add(time.Minute), uuid.New()),
	}

	if got := PositionOf(entries, userB); got != 2 {
		t.Fatalf("expected position 2, got %d", got)
	}
	if got := PositionOf(entries, uuid.New()); got != 0 {
		t.Fatalf("expected 0 for absent user, got %d", got)
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityHigh.Rank() <= PriorityNormal.Rank() || PriorityNormal.Rank() <= PriorityLow.Rank() {
		t.Fatal("priority bands must be strictly ordered high > normal > low")
	}
	if Priority("URGENT").IsValid() {
		t.Fatal("unknown band must be invalid")
	}
}
