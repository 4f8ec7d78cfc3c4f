package reservations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ticketly/internal/shared/apperrors"
	"ticketly/internal/shared/clock"
	"ticketly/internal/shared/config"

	"github.com/google/uuid"
)

// tierState mirrors the counter columns the real repository mutates.
type tierState struct {
	capacity  int
	held      int
	committed int
}

// fakeRepository reproduces the conditional-update arbitration of the
// Postgres repository over in-memory state, so the race-sensitive service
// paths can be exercised deterministically.
type fakeRepository struct {
	mu           sync.Mutex
	tiers        map[uuid.UUID]*tierState
	reservations map[uuid.UUID]*Reservation
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tiers:        make(map[uuid.UUID]*tierState),
		reservations: make(map[uuid.UUID]*Reservation),
	}
}

func (f *fakeRepository) addTier(id uuid.UUID, capacity int) {
	f.tiers[id] = &tierState{capacity: capacity}
}

func (f *fakeRepository) CreateHold(ctx context.Context, reservation *Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tier, ok := f.tiers[reservation.TierID]
	if !ok {
		return apperrors.NotFound("ticket tier not found for event")
	}
	if tier.capacity-tier.held-tier.committed < reservation.Quantity {
		return apperrors.Conflict("insufficient capacity for requested quantity")
	}
	tier.held += reservation.Quantity
	copied := *reservation
	f.reservations[reservation.ID] = &copied
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reservations[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, apperrors.NotFound("reservation not found")
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Reservation
	for _, r := range f.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepository) Confirm(ctx context.Context, id uuid.UUID, now time.Time) (*Reservation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[id]
	if !ok {
		return nil, false, apperrors.NotFound("reservation not found")
	}
	if r.Status != StatusPending || !r.ExpiresAt.After(now) {
		copied := *r
		return &copied, false, nil
	}

	r.Status = StatusConfirmed
	tier := f.tiers[r.TierID]
	tier.held -= r.Quantity
	tier.committed += r.Quantity
	copied := *r
	return &copied, true, nil
}

func (f *fakeRepository) Cancel(ctx context.Context, id uuid.UUID, now time.Time) (*Reservation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[id]
	if !ok {
		return nil, false, apperrors.NotFound("reservation not found")
	}

	switch r.Status {
	case StatusPending:
		r.Status = StatusCancelled
		f.tiers[r.TierID].held -= r.Quantity
	case StatusConfirmed:
		r.Status = StatusCancelled
		f.tiers[r.TierID].committed -= r.Quantity
	default:
		copied := *r
		return &copied, false, nil
	}
	copied := *r
	return &copied, true, nil
}

func (f *fakeRepository) ExpireBatch(ctx context.Context, now time.Time, limit int) ([]ReapedHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var reaped []ReapedHold
	for _, r := range f.reservations {
		if len(reaped) >= limit {
			break
		}
		if r.Status == StatusPending && !r.ExpiresAt.After(now) {
			r.Status = StatusExpired
			f.tiers[r.TierID].held -= r.Quantity
			reaped = append(reaped, ReapedHold{
				ReservationID: r.ID,
				EventID:       r.EventID,
				TierID:        r.TierID,
				Quantity:      r.Quantity,
			})
		}
	}
	return reaped, nil
}

// recordingGateway captures offers handed to the waitlist.
type recordingGateway struct {
	mu        sync.Mutex
	fulfilled []uuid.UUID
	offers    chan int
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{offers: make(chan int, 16)}
}

func (g *recordingGateway) MarkFulfilled(ctx context.Context, userID, eventID, tierID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fulfilled = append(g.fulfilled, userID)
	return nil
}

func (g *recordingGateway) OfferFreedCapacity(ctx context.Context, eventID, tierID uuid.UUID, freed int) (int, error) {
	g.offers <- freed
	return 0, nil
}

func (g *recordingGateway) waitForOffer(t *testing.T) int {
	t.Helper()
	select {
	case freed := <-g.offers:
		return freed
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a capacity offer")
		return 0
	}
}

func testConfig() config.ReservationConfig {
	return config.ReservationConfig{
		HoldTTL:        30 * time.Minute,
		SweepInterval:  5 * time.Minute,
		SweepJitter:    0,
		SweepBatchSize: 100,
	}
}

func TestConcurrentCreatesNeverOverAllocate(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	eventID := uuid.New()
	const capacity = 7
	repo.addTier(tierID, capacity)

	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, nil, fixed, testConfig(), nil)

	const attempts = 40
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), uuid.New(), CreateReservationRequest{
				EventID:  eventID,
				TierID:   tierID,
				Quantity: 1,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, conflicted := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.Conflict("")):
			conflicted++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}

	if succeeded != capacity {
		t.Fatalf("capacity %d with %d contenders: expected exactly %d successes, got %d",
			capacity, attempts, capacity, succeeded)
	}
	if conflicted != attempts-capacity {
		t.Fatalf("expected %d conflicts, got %d", attempts-capacity, conflicted)
	}
	if repo.tiers[tierID].held != capacity {
		t.Fatalf("held counter drifted: %d", repo.tiers[tierID].held)
	}
}

func TestConfirmRespectsTTLBoundary(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	repo.addTier(tierID, 10)

	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, nil, fixed, testConfig(), nil)
	userID := uuid.New()

	t.Run("inside the window", func(t *testing.T) {
		created, err := svc.Create(context.Background(), userID, CreateReservationRequest{
			EventID: uuid.New(), TierID: tierID, Quantity: 1,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		fixed.Advance(29 * time.Minute)
		confirmed, err := svc.Confirm(context.Background(), userID, "USER", created.ID)
		if err != nil {
			t.Fatalf("confirm at T+29m must succeed: %v", err)
		}
		if confirmed.Status != StatusConfirmed {
			t.Fatalf("expected CONFIRMED, got %s", confirmed.Status)
		}
		if repo.tiers[tierID].committed != 1 || repo.tiers[tierID].held != 0 {
			t.Fatalf("counters after confirm: held=%d committed=%d",
				repo.tiers[tierID].held, repo.tiers[tierID].committed)
		}
	})

	t.Run("past the window", func(t *testing.T) {
		created, err := svc.Create(context.Background(), userID, CreateReservationRequest{
			EventID: uuid.New(), TierID: tierID, Quantity: 1,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		fixed.Advance(31 * time.Minute)
		_, err = svc.Confirm(context.Background(), userID, "USER", created.ID)
		if !errors.Is(err, apperrors.Conflict("")) {
			t.Fatalf("confirm at T+31m must conflict even before the reaper runs, got %v", err)
		}
	})
}

func TestConfirmIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	repo.addTier(tierID, 10)

	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, nil, fixed, testConfig(), nil)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, CreateReservationRequest{
		EventID: uuid.New(), TierID: tierID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), userID, "USER", created.ID); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	again, err := svc.Confirm(context.Background(), userID, "USER", created.ID)
	if err != nil {
		t.Fatalf("repeat confirm must be a no-op: %v", err)
	}
	if again.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", again.Status)
	}
	if repo.tiers[tierID].committed != 2 {
		t.Fatalf("repeat confirm must not move counters twice, committed=%d", repo.tiers[tierID].committed)
	}
}

func TestConfirmAndReaperRaceHasOneWinner(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	repo.addTier(tierID, 10)

	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, nil, fixed, testConfig(), nil)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, CreateReservationRequest{
		EventID: uuid.New(), TierID: tierID, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fixed.Advance(31 * time.Minute)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Confirm(context.Background(), userID, "USER", created.ID)
	}()
	go func() {
		defer wg.Done()
		_, _ = svc.SweepExpired(context.Background())
	}()
	wg.Wait()

	final, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	// Past the TTL the conditional confirm can no longer match, so the
	// reaper's transition is the only possible outcome.
	if final.Status != StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", final.Status)
	}
	if repo.tiers[tierID].held != 0 || repo.tiers[tierID].committed != 0 {
		t.Fatalf("counters after race: held=%d committed=%d",
			repo.tiers[tierID].held, repo.tiers[tierID].committed)
	}
}

func TestSweepFreesCapacityAndOffersWaitlist(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	eventID := uuid.New()
	repo.addTier(tierID, 10)

	gateway := newRecordingGateway()
	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, gateway, fixed, testConfig(), nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), uuid.New(), CreateReservationRequest{
			EventID: eventID, TierID: tierID, Quantity: 2,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	fixed.Advance(31 * time.Minute)
	result, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Reaped != 3 {
		t.Fatalf("expected 3 reaped, got %d", result.Reaped)
	}
	if freed := result.FreedByTarget[Target{EventID: eventID, TierID: tierID}]; freed != 6 {
		t.Fatalf("expected 6 freed for target, got %d", freed)
	}
	if got := gateway.waitForOffer(t); got != 6 {
		t.Fatalf("waitlist must be offered the aggregated freed quantity, got %d", got)
	}
	if repo.tiers[tierID].held != 0 {
		t.Fatalf("held counter after sweep: %d", repo.tiers[tierID].held)
	}
}

func TestCancelReleasesAndIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	eventID := uuid.New()
	repo.addTier(tierID, 5)

	gateway := newRecordingGateway()
	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, gateway, fixed, testConfig(), nil)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, CreateReservationRequest{
		EventID: eventID, TierID: tierID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), userID, "USER", created.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	if repo.tiers[tierID].held != 0 {
		t.Fatalf("held must be released on cancel, got %d", repo.tiers[tierID].held)
	}
	if got := gateway.waitForOffer(t); got != 2 {
		t.Fatalf("waitlist must be offered the cancelled quantity, got %d", got)
	}

	// Repeat cancel settles on the current state without new offers.
	again, err := svc.Cancel(context.Background(), userID, "USER", created.ID)
	if err != nil {
		t.Fatalf("repeat cancel must be a no-op: %v", err)
	}
	if again.Status != StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", again.Status)
	}
	select {
	case freed := <-gateway.offers:
		t.Fatalf("repeat cancel must not offer capacity again, got %d", freed)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelByOtherUserIsForbidden(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	repo.addTier(tierID, 5)

	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, nil, fixed, testConfig(), nil)

	created, err := svc.Create(context.Background(), uuid.New(), CreateReservationRequest{
		EventID: uuid.New(), TierID: tierID, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.Cancel(context.Background(), uuid.New(), "USER", created.ID)
	if !errors.Is(err, apperrors.Forbidden("")) {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	// Admins may act on any reservation.
	if _, err := svc.Cancel(context.Background(), uuid.New(), "ADMIN", created.ID); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
}

func TestCreateMarksNotifiedEntryFulfilled(t *testing.T) {
	repo := newFakeRepository()
	tierID := uuid.New()
	repo.addTier(tierID, 5)

	gateway := newRecordingGateway()
	fixed := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, gateway, fixed, testConfig(), nil)
	userID := uuid.New()

	if _, err := svc.Create(context.Background(), userID, CreateReservationRequest{
		EventID: uuid.New(), TierID: tierID, Quantity: 1,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if len(gateway.fulfilled) != 1 || gateway.fulfilled[0] != userID {
		t.Fatalf("create must hand the subject to the waitlist for settlement, got %v", gateway.fulfilled)
	}
}
