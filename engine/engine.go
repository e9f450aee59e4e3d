// Package engine holds the payment-order-ticket transaction engine: the
// state machine over Transaction rows, idempotent initiation, atomic
// completion with ticket minting, refunds, retries and gate validation.
package engine

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"concert_manager/audit"
	"concert_manager/payment"
	"concert_manager/qrtoken"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 10")
	ErrEventNotPurchasable = errors.New("event is not open for purchase")
	ErrTierNotFound        = errors.New("ticket tier not found")
	ErrTierSoldOut         = errors.New("not enough tickets left in tier")
	ErrTierLimit           = errors.New("per-user limit for this tier exceeded")
	ErrNotFound            = errors.New("not found")
	ErrGatewayInit         = errors.New("payment initialization failed")
	ErrOversold            = errors.New("oversold at completion")
	ErrNotRefundable       = errors.New("transaction is not refundable")
	ErrRefundExceedsNet    = errors.New("refund exceeds refundable amount")
	ErrGatewayRefund       = errors.New("gateway refund failed")
	ErrNotRetryable        = errors.New("transaction is not retryable")
	ErrRetryExhausted      = errors.New("retry attempts exhausted")
	ErrVerificationFailed  = errors.New("payment verification failed")
)

// Clock is injectable time for tests.
type Clock func() time.Time

// Options are the engine tunables, all sourced from config.
type Options struct {
	OrganizerPercent int64
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	MaxRetries       int
	GatewayTimeout   time.Duration
}

type TransactionEngine struct {
	db      *gorm.DB
	gateway payment.Gateway
	codec   *qrtoken.Codec
	audit   *audit.Emitter
	opts    Options
	now     Clock
}

func NewTransactionEngine(db *gorm.DB, gw payment.Gateway, codec *qrtoken.Codec, emitter *audit.Emitter, opts Options) *TransactionEngine {
	if opts.OrganizerPercent <= 0 || opts.OrganizerPercent > 100 {
		opts.OrganizerPercent = 90
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 15 * time.Second
	}
	return &TransactionEngine{
		db:      db,
		gateway: gw,
		codec:   codec,
		audit:   emitter,
		opts:    opts,
		now:     time.Now,
	}
}

// WithClock replaces the time source; tests freeze it.
func (e *TransactionEngine) WithClock(c Clock) *TransactionEngine {
	e.now = c
	return e
}

// forUpdate adds a row lock on dialects that support it. SQLite (tests)
// serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// isDuplicateKey matches unique-constraint violations across dialects.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}

// backoff computes the retry delay for the given attempt:
// min(base * 2^attempt, max) with ±10% jitter.
func (e *TransactionEngine) backoff(attempt int) time.Duration {
	delay := e.opts.RetryBaseDelay << uint(attempt)
	if delay > e.opts.RetryMaxDelay || delay <= 0 {
		delay = e.opts.RetryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/5+1)) - delay/10
	return delay + jitter
}
