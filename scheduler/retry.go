// Package scheduler runs the background jobs: the retry scan that reopens
// eligible failed transactions and the sweeper that times out stale ones.
package scheduler

import (
	"context"
	"sync"
	"time"

	"concert_manager/engine"
	"concert_manager/monitoring"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

const (
	retryBatchSize   = 50
	retryConcurrency = 4
)

// RetryScheduler periodically scans for failed transactions whose
// nextRetryAt has passed and reopens them with bounded concurrency. A
// failed attempt just gets a fresh nextRetryAt; nothing is dropped.
type RetryScheduler struct {
	engine    *engine.TransactionEngine
	scheduler gocron.Scheduler
	interval  time.Duration
}

func NewRetryScheduler(eng *engine.TransactionEngine, interval time.Duration) (*RetryScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &RetryScheduler{engine: eng, scheduler: s, interval: interval}, nil
}

func (r *RetryScheduler) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.scanOnce),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	r.scheduler.Start()
	log.Infof("retry scheduler started, scanning every %s", r.interval)
	return nil
}

func (r *RetryScheduler) Stop() {
	if err := r.scheduler.Shutdown(); err != nil {
		log.Warnf("retry scheduler shutdown: %v", err)
	}
}

func (r *RetryScheduler) scanOnce() {
	due, err := r.engine.DueForRetry(retryBatchSize)
	if err != nil {
		log.Errorf("retry scan failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	log.Infof("retry scan: %d transaction(s) due", len(due))

	sem := make(chan struct{}, retryConcurrency)
	var wg sync.WaitGroup
	for _, txn := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(id uint) {
			defer wg.Done()
			defer func() { <-sem }()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			monitoring.RetriesAttempted.Inc()
			if _, err := r.engine.Retry(ctx, id); err != nil {
				// stays failed with a fresh nextRetryAt, next scan picks it up
				log.Warnf("retry of transaction %d failed: %v", id, err)
			}
		}(txn.ID)
	}
	wg.Wait()
}
