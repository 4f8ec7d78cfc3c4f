package reservations

// ReservationStatus represents the state of a hold
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusExpired   ReservationStatus = "EXPIRED"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// IsValid checks if the reservation status is valid
func (s ReservationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is immutable.
// CONFIRMED can still be cancelled; EXPIRED and CANCELLED cannot move.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusExpired || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	validTransitions := map[ReservationStatus][]ReservationStatus{
		StatusPending:   {StatusConfirmed, StatusExpired, StatusCancelled},
		StatusConfirmed: {StatusCancelled},
		StatusExpired:   {},
		StatusCancelled: {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
