package engine

import (
	"context"
	"errors"
	"fmt"

	"concert_manager/model"
	"concert_manager/monitoring"

	"gorm.io/gorm"
)

// Fail moves a transaction to failed and marks its order. Calling it on an
// already-failed transaction is a no-op returning the current row; event
// and tier counters are untouched either way.
func (e *TransactionEngine) Fail(ctx context.Context, transactionID uint, reason, code, details string) (*model.Transaction, error) {
	var txn model.Transaction
	var changed bool

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&txn, "id = ?", transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if txn.Status == model.TxnFailed {
			return nil
		}
		if !model.CanTransition(txn.Status, model.TxnFailed) {
			return model.ErrInvalidTransition
		}

		now := e.now()
		txn.Status = model.TxnFailed
		txn.FailedAt = &now
		txn.FailureReason = reason
		txn.FailureCode = code
		txn.FailureDetails = details
		if err := tx.Save(&txn).Error; err != nil {
			return err
		}
		changed = true

		return tx.Model(&model.Order{}).Where("id = ?", txn.OrderID).
			UpdateColumn("payment_status", model.OrderFailed).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		monitoring.PaymentsFailed.WithLabelValues(code).Inc()
		e.audit.Emit(model.AuditPaymentFailed, model.Actor{UserID: txn.UserID, IsSystem: true},
			fmt.Sprintf("transaction:%d", txn.ID), map[string]any{"reason": reason, "code": code})
	}
	return &txn, nil
}

// FailByReference is the webhook entry point for charge.failed.
func (e *TransactionEngine) FailByReference(ctx context.Context, reference, reason, code, details string) (*model.Transaction, error) {
	txn, err := e.findByReference(reference)
	if err != nil {
		return nil, err
	}
	return e.Fail(ctx, txn.ID, reason, code, details)
}
