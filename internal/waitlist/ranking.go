package waitlist

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Less is the total order of the waitlist: priority band descending, then
// joined_at ascending, then id as a deterministic tiebreak. It depends
// only on persisted fields, so any replica computes the same order.
func Less(a, b *WaitlistEntry) bool {
	if a.PriorityRank != b.PriorityRank {
		return a.PriorityRank > b.PriorityRank
	}
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.Before(b.JoinedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Rank sorts entries in place by the waitlist order.
func Rank(entries []WaitlistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(&entries[i], &entries[j])
	})
}

// PositionOf returns the 1-based rank of userID among the given waiting
// entries, or 0 when the user has no entry there.
func PositionOf(entries []WaitlistEntry, userID uuid.UUID) int {
	Rank(entries)
	for i := range entries {
		if entries[i].UserID == userID {
			return i + 1
		}
	}
	return 0
}
