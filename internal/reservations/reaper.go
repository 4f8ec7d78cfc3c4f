package reservations

import (
	"context"
	"math/rand"
	"time"

	"ticketly/internal/shared/config"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"
)

const sweepLockName = "reservation-sweep"

// Reaper periodically reclaims lapsed holds. Multiple instances may run;
// a Redis lock elects one sweeper per pass and the conditional updates in
// the repository make overlapping sweeps safe anyway.
type Reaper struct {
	service  Service
	cache    *cache.Service
	interval time.Duration
	jitter   time.Duration
	lockTTL  time.Duration
	logger   *logger.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewReaper creates a reaper driven by the reservation sweep settings.
func NewReaper(service Service, cacheService *cache.Service, cfg config.ReservationConfig, lockTTL time.Duration, log *logger.Logger) *Reaper {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Reaper{
		service:  service,
		cache:    cacheService,
		interval: cfg.SweepInterval,
		jitter:   cfg.SweepJitter,
		lockTTL:  lockTTL,
		logger:   log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop in the background.
func (r *Reaper) Start() {
	go r.run()
	r.logger.Info("expiry reaper started",
		"interval", r.interval.String(), "jitter", r.jitter.String())
}

// Stop signals the loop to exit and waits for the in-flight pass.
func (r *Reaper) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.logger.Info("expiry reaper stopped")
}

func (r *Reaper) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweepOnce()
		}
	}
}

func (r *Reaper) sweepOnce() {
	// Jitter desynchronizes instances that started at the same moment.
	if r.jitter > 0 {
		delay := time.Duration(rand.Int63n(int64(r.jitter)))
		select {
		case <-r.stopCh:
			return
		case <-time.After(delay):
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.lockTTL)
	defer cancel()

	acquired, err := r.cache.AcquireLock(ctx, sweepLockName, r.lockTTL)
	if err != nil {
		r.logger.ErrorWithContext(ctx, "sweep lock acquisition failed", err, nil)
		return
	}
	if !acquired {
		// Another instance owns this pass.
		return
	}
	defer func() {
		if err := r.cache.ReleaseLock(context.Background(), sweepLockName); err != nil {
			r.logger.Warn("failed to release sweep lock", "error", err.Error())
		}
	}()

	if _, err := r.service.SweepExpired(ctx); err != nil {
		// Partial progress is fine; the next pass picks up the remainder.
		r.logger.ErrorWithContext(ctx, "sweep pass ended with error", err, nil)
	}
}
