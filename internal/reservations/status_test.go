package reservations

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    ReservationStatus
		to      ReservationStatus
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusExpired, false},
		{StatusExpired, StatusConfirmed, false},
		{StatusExpired, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusExpired.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Fatal("EXPIRED and CANCELLED are terminal")
	}
	if StatusPending.IsTerminal() || StatusConfirmed.IsTerminal() {
		t.Fatal("PENDING and CONFIRMED are not terminal")
	}
}
