package engine

import (
	"context"
	"errors"
	"fmt"

	"concert_manager/model"
	"concert_manager/payment"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RetryResult carries the fresh checkout session of a reopened payment.
type RetryResult struct {
	Transaction *model.Transaction `json:"transaction"`
	PaymentURL  string             `json:"paymentUrl"`
}

// Retry reopens a failed transaction: failed → processing with a new
// gateway reference. A gateway failure drops it back to failed and
// schedules the next attempt for the RetryScheduler.
func (e *TransactionEngine) Retry(ctx context.Context, transactionID uint) (*RetryResult, error) {
	var txn model.Transaction
	var reference string

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&txn, "id = ?", transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if txn.Status != model.TxnFailed {
			return ErrNotRetryable
		}
		if txn.RetryCount >= txn.MaxRetries {
			return ErrRetryExhausted
		}
		if !model.CanTransition(txn.Status, model.TxnProcessing) {
			return model.ErrInvalidTransition
		}

		now := e.now()
		txn.Status = model.TxnProcessing
		txn.RetryCount++
		txn.LastRetryAt = &now
		txn.NextRetryAt = nil
		txn.ProcessingAt = &now
		reference = fmt.Sprintf("retry_%d_%d_%d", txn.RetryCount, now.UnixNano(), txn.UserID)
		txn.GatewayReference = reference
		if err := tx.Save(&txn).Error; err != nil {
			return err
		}
		// keep the order resolvable by the new reference
		return tx.Model(&model.Order{}).Where("id = ?", txn.OrderID).
			UpdateColumns(map[string]any{
				"payment_status":     model.OrderPending,
				"paystack_reference": reference,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, e.opts.GatewayTimeout)
	defer cancel()
	init, err := e.gateway.Initialize(gwCtx, payment.InitializeRequest{
		Email:          txn.MetaEmail,
		AmountMinor:    txn.Amount,
		Reference:      reference,
		SubaccountCode: txn.OrganizerSubaccountCode,
		Metadata: map[string]any{
			"orderId": txn.OrderID,
			"retry":   txn.RetryCount,
		},
	})
	if err != nil || init == nil || !init.OK {
		log.WithField("transaction", txn.ID).Warnf("retry initialize failed: %v", err)
		next := e.now().Add(e.backoff(txn.RetryCount))
		updates := map[string]any{
			"status":         model.TxnFailed,
			"failure_reason": "retry init failed",
			"next_retry_at":  next,
		}
		if updErr := e.db.Model(&model.Transaction{}).Where("id = ?", txn.ID).
			UpdateColumns(updates).Error; updErr != nil {
			log.Errorf("could not reschedule transaction %d: %v", txn.ID, updErr)
		}
		return nil, ErrGatewayInit
	}

	if err := e.db.Model(&model.Transaction{}).Where("id = ?", txn.ID).
		UpdateColumn("gateway_auth_url", init.AuthorizationURL).Error; err != nil {
		log.Warnf("could not store authorization url for transaction %d: %v", txn.ID, err)
	}
	txn.GatewayAuthURL = init.AuthorizationURL

	e.audit.Emit(model.AuditPaymentRetried, model.Actor{UserID: txn.UserID, IsSystem: true},
		fmt.Sprintf("transaction:%d", txn.ID), map[string]any{
			"attempt":   txn.RetryCount,
			"reference": reference,
		})
	return &RetryResult{Transaction: &txn, PaymentURL: init.AuthorizationURL}, nil
}

// DueForRetry lists failed transactions whose nextRetryAt has passed and
// that still have attempts left.
func (e *TransactionEngine) DueForRetry(limit int) ([]model.Transaction, error) {
	var due []model.Transaction
	err := e.db.
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ? AND retry_count < max_retries",
			model.TxnFailed, e.now()).
		Order("next_retry_at asc").
		Limit(limit).
		Find(&due).Error
	return due, err
}
