package engine

import (
	"context"
	"errors"
	"fmt"

	"concert_manager/model"
	"concert_manager/payment"

	"gorm.io/gorm"
)

// Refund appends a refund record and recomputes the transaction status.
// amount == nil refunds the remaining net. The gateway refund is requested
// inside the database transaction: a gateway failure rolls everything
// back. Tier counters are never decremented; tickets are cancelled only
// when the refund is full.
func (e *TransactionEngine) Refund(ctx context.Context, transactionID uint, amount *int64, reason string, processedBy model.Actor) (*model.Transaction, error) {
	var txn model.Transaction

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&txn, "id = ?", transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if txn.Status != model.TxnCompleted && txn.Status != model.TxnPartiallyRefunded {
			return ErrNotRefundable
		}
		net := txn.Amount - txn.TotalRefunded
		if net <= 0 {
			return ErrNotRefundable
		}
		refundAmount := net
		if amount != nil {
			refundAmount = *amount
		}
		if refundAmount <= 0 || refundAmount > net {
			return ErrRefundExceedsNet
		}

		gwCtx, cancel := context.WithTimeout(ctx, e.opts.GatewayTimeout)
		defer cancel()
		gwRefund, err := e.gateway.Refund(gwCtx, payment.RefundRequest{
			TransactionReference: txn.GatewayReference,
			AmountMinor:          refundAmount,
		})
		if err != nil || gwRefund == nil || !gwRefund.OK {
			return fmt.Errorf("%w: %v", ErrGatewayRefund, err)
		}

		now := e.now()
		record := model.Refund{
			TransactionID:   txn.ID,
			Amount:          refundAmount,
			Reason:          reason,
			ProcessedBy:     processedBy.UserID,
			ProcessedAt:     now,
			GatewayRefundID: gwRefund.GatewayRefundID,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		txn.TotalRefunded += refundAmount
		next := model.TxnPartiallyRefunded
		if txn.TotalRefunded == txn.Amount {
			next = model.TxnRefunded
		}
		if !model.CanTransition(txn.Status, next) {
			return model.ErrInvalidTransition
		}
		txn.Status = next
		if err := tx.Save(&txn).Error; err != nil {
			return err
		}

		if next == model.TxnRefunded {
			if err := tx.Model(&model.Order{}).Where("id = ?", txn.OrderID).
				UpdateColumn("payment_status", model.OrderRefunded).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.Ticket{}).Where("order_id = ?", txn.OrderID).
				UpdateColumn("status", model.TicketCancelled).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Emit(model.AuditRefundProcessed, processedBy,
		fmt.Sprintf("transaction:%d", txn.ID), map[string]any{
			"amount":        txn.TotalRefunded,
			"status":        txn.Status,
			"reason":        reason,
		})
	return &txn, nil
}
