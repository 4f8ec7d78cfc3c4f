package waitlist

import (
	"context"
	"time"

	"ticketly/pkg/cache"
	"ticketly/pkg/logger"
)

const requeueLockName = "waitlist-requeue"

// RequeueJob periodically returns lapsed NOTIFIED entries to the queue.
// Like the expiry reaper, it elects one worker per pass via a Redis lock.
type RequeueJob struct {
	service  Service
	cache    *cache.Service
	interval time.Duration
	lockTTL  time.Duration
	logger   *logger.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRequeueJob creates the background requeue worker.
func NewRequeueJob(service Service, cacheService *cache.Service, interval, lockTTL time.Duration, log *logger.Logger) *RequeueJob {
	if log == nil {
		log = logger.GetDefault()
	}
	return &RequeueJob{
		service:  service,
		cache:    cacheService,
		interval: interval,
		lockTTL:  lockTTL,
		logger:   log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the requeue loop in the background.
func (j *RequeueJob) Start() {
	go j.run()
	j.logger.Info("waitlist requeue job started", "interval", j.interval.String())
}

// Stop signals the loop to exit and waits for the in-flight pass.
func (j *RequeueJob) Stop() {
	close(j.stopCh)
	<-j.doneCh
	j.logger.Info("waitlist requeue job stopped")
}

func (j *RequeueJob) run() {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.runOnce()
		}
	}
}

func (j *RequeueJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.lockTTL)
	defer cancel()

	acquired, err := j.cache.AcquireLock(ctx, requeueLockName, j.lockTTL)
	if err != nil {
		j.logger.ErrorWithContext(ctx, "requeue lock acquisition failed", err, nil)
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := j.cache.ReleaseLock(context.Background(), requeueLockName); err != nil {
			j.logger.Warn("failed to release requeue lock", "error", err.Error())
		}
	}()

	if _, err := j.service.RequeueExpiredOffers(ctx); err != nil {
		j.logger.ErrorWithContext(ctx, "requeue pass ended with error", err, nil)
	}
}
