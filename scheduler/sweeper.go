package scheduler

import (
	"context"
	"time"

	"concert_manager/engine"
	"concert_manager/model"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sweeper times out transactions stuck in initiated/processing and reports
// the refund-outbox backlog. Runs every few minutes under robfig/cron.
type Sweeper struct {
	db     *gorm.DB
	engine *engine.TransactionEngine
	after  time.Duration
	cron   *cron.Cron
}

func NewSweeper(db *gorm.DB, eng *engine.TransactionEngine, after time.Duration) *Sweeper {
	return &Sweeper{db: db, engine: eng, after: after, cron: cron.New()}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 5m", s.sweepOnce); err != nil {
		return err
	}
	s.cron.Start()
	log.Infof("stale-transaction sweeper started, cutoff %s", s.after)
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweepOnce() {
	cutoff := time.Now().Add(-s.after)

	var stale []model.Transaction
	if err := s.db.
		Where("status IN ? AND created_at < ?", []string{model.TxnInitiated, model.TxnProcessing}, cutoff).
		Limit(100).
		Find(&stale).Error; err != nil {
		log.Errorf("stale sweep query failed: %v", err)
		return
	}

	for _, txn := range stale {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := s.engine.Fail(ctx, txn.ID, "timeout", "stale", ""); err != nil {
			log.Warnf("could not time out transaction %d: %v", txn.ID, err)
		}
		cancel()
	}
	if len(stale) > 0 {
		log.Infof("timed out %d stale transaction(s)", len(stale))
	}

	var pendingRefunds int64
	if err := s.db.Model(&model.RefundOutbox{}).
		Where("status = ?", "pending").
		Count(&pendingRefunds).Error; err == nil && pendingRefunds > 0 {
		log.Warnf("refund outbox backlog: %d entr(ies) awaiting payout", pendingRefunds)
	}
}
