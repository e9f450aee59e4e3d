package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"concert_manager/model"
	"concert_manager/payment"
	"concert_manager/qrtoken"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CompleteResult is returned to both the verifier endpoint and the webhook
// dispatcher; AlreadyCompleted marks the idempotent replay.
type CompleteResult struct {
	Transaction      *model.Transaction `json:"transaction"`
	Order            *model.Order       `json:"order"`
	Tickets          []model.Ticket     `json:"tickets"`
	AlreadyCompleted bool               `json:"alreadyCompleted"`
}

// VerifyAndComplete resolves a gateway reference: it asks the gateway for
// the charge outcome and routes to Complete or Fail. This is the
// verification path; webhooks land on CompleteByReference directly.
func (e *TransactionEngine) VerifyAndComplete(ctx context.Context, reference string) (*CompleteResult, error) {
	txn, err := e.findByReference(reference)
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, e.opts.GatewayTimeout)
	defer cancel()
	verification, err := e.gateway.Verify(gwCtx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !verification.OK {
		if _, failErr := e.Fail(ctx, txn.ID, "charge not successful", "charge_failed", verification.Status); failErr != nil &&
			!errors.Is(failErr, model.ErrInvalidTransition) {
			return nil, failErr
		}
		return nil, ErrVerificationFailed
	}

	return e.Complete(ctx, txn.ID, verification)
}

// CompleteByReference is the webhook entry point.
func (e *TransactionEngine) CompleteByReference(ctx context.Context, reference string, data *payment.VerifyResult) (*CompleteResult, error) {
	txn, err := e.findByReference(reference)
	if err != nil {
		return nil, err
	}
	return e.Complete(ctx, txn.ID, data)
}

// Complete is the completion boundary. In one database transaction it
// moves the ledger row to completed, marks the order paid, bumps the tier
// and event counters, records the revenue split and mints the tickets.
// Re-invocation on a completed transaction returns the stored result, so
// the verifier and any number of webhooks converge on one outcome.
//
// Inventory is re-checked here; a purchase that lost the race is flipped
// to failed and queued for refund instead of overselling the tier.
func (e *TransactionEngine) Complete(ctx context.Context, transactionID uint, data *payment.VerifyResult) (*CompleteResult, error) {
	var result *CompleteResult
	var oversold bool

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn model.Transaction
		if err := forUpdate(tx).First(&txn, "id = ?", transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if txn.Status == model.TxnCompleted {
			existing, err := e.loadResult(tx, &txn)
			if err != nil {
				return err
			}
			existing.AlreadyCompleted = true
			result = existing
			return nil
		}

		now := e.now()
		if txn.Status == model.TxnInitiated {
			txn.Status = model.TxnProcessing
			txn.ProcessingAt = &now
		}
		if !model.CanTransition(txn.Status, model.TxnCompleted) {
			return model.ErrInvalidTransition
		}

		var order model.Order
		if err := forUpdate(tx).First(&order, "id = ?", txn.OrderID).Error; err != nil {
			return err
		}

		var event model.Event
		if err := forUpdate(tx).First(&event, "id = ?", order.EventID).Error; err != nil {
			return err
		}
		var tier model.TicketTier
		if err := forUpdate(tx).First(&tier, "id = ?", order.TierID).Error; err != nil {
			return err
		}

		// Conditional bump doubles as the oversell guard: zero rows
		// affected means the inventory is gone.
		bump := tx.Model(&model.TicketTier{}).
			Where("id = ? AND sold_count + ? <= quantity", tier.ID, order.Quantity).
			UpdateColumn("sold_count", gorm.Expr("sold_count + ?", order.Quantity))
		if bump.Error != nil {
			return bump.Error
		}
		if bump.RowsAffected == 0 {
			oversold = true
			return e.markOversold(tx, &txn, &order, now)
		}

		if err := tx.Model(&model.Event{}).Where("id = ?", event.ID).
			UpdateColumns(map[string]any{
				"total_tickets_sold": gorm.Expr("total_tickets_sold + ?", order.Quantity),
				"total_revenue":      gorm.Expr("total_revenue + ?", order.TotalAmount),
			}).Error; err != nil {
			return err
		}

		splits := e.resolveSplits(tx, &event, order.TotalAmount, data)

		txn.Status = model.TxnCompleted
		txn.CompletedAt = &now
		txn.PlatformAmount = splits.PlatformAmount
		txn.OrganizerAmount = splits.OrganizerAmount
		if data != nil {
			txn.GatewayTxnID = data.TransactionID
			txn.GatewayChannel = data.Channel
			txn.GatewayFees = data.Fees
			if data.Authorization != nil {
				txn.GatewayAuthMeta = fmt.Sprintf("%s %s %s",
					data.Authorization.CardType, data.Authorization.Last4, data.Authorization.Bank)
			}
			if data.Subaccount != nil {
				txn.OrganizerSubaccountCode = data.Subaccount.Code
			}
		}
		if err := tx.Save(&txn).Error; err != nil {
			return err
		}

		order.PaymentStatus = model.OrderCompleted
		order.PlatformAmount = splits.PlatformAmount
		order.OrganizerAmount = splits.OrganizerAmount
		if data != nil {
			order.PaymentChannel = data.Channel
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		tickets, err := e.mintTickets(tx, &order, &tier, now.UnixMilli())
		if err != nil {
			return err
		}
		order.Tickets = tickets

		result = &CompleteResult{Transaction: &txn, Order: &order, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if oversold {
		return nil, ErrOversold
	}

	if !result.AlreadyCompleted {
		e.audit.Emit(model.AuditPaymentCompleted, model.Actor{UserID: result.Order.UserID},
			fmt.Sprintf("transaction:%d", result.Transaction.ID), map[string]any{
				"amount":  result.Transaction.Amount,
				"tickets": len(result.Tickets),
			})
	}
	return result, nil
}

// markOversold runs inside the completion transaction: the commit carries
// the failed state plus the refund intent, never the oversell.
func (e *TransactionEngine) markOversold(tx *gorm.DB, txn *model.Transaction, order *model.Order, now time.Time) error {
	txn.Status = model.TxnFailed
	txn.FailedAt = &now
	txn.FailureReason = "oversold at completion"
	txn.FailureCode = "oversold"
	if err := tx.Save(txn).Error; err != nil {
		return err
	}
	order.PaymentStatus = model.OrderFailed
	if err := tx.Save(order).Error; err != nil {
		return err
	}
	outbox := model.RefundOutbox{
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Reason:        "oversold at completion",
	}
	if err := tx.Create(&outbox).Error; err != nil {
		return err
	}
	log.WithField("transaction", txn.ID).Warn("oversold at completion, refund queued")
	return nil
}

// resolveSplits prefers the platform share the gateway actually applied;
// otherwise it falls back to the configured organizer percentage. Reported
// gateway fees come out of the organizer side.
func (e *TransactionEngine) resolveSplits(tx *gorm.DB, event *model.Event, total int64, data *payment.VerifyResult) Splits {
	if data != nil && data.Subaccount != nil && data.Subaccount.SharedAmount > 0 {
		platform := data.Subaccount.SharedAmount
		if platform > total {
			platform = total
		}
		return Splits{PlatformAmount: platform, OrganizerAmount: total - platform}
	}

	percent := e.opts.OrganizerPercent
	var organizer model.Organizer
	if err := tx.First(&organizer, "id = ?", event.OrganizerID).Error; err == nil {
		percent = organizer.OrganizerPercent()
	}
	splits := ComputeSplits(total, percent)
	if data != nil && data.Fees > 0 {
		splits.OrganizerAmount -= data.Fees
		if splits.OrganizerAmount < 0 {
			splits.OrganizerAmount = 0
		}
	}
	return splits
}

// mintTickets inserts one ticket per purchased seat. Each row is created
// with a placeholder code, then updated with the signed token for its id;
// a token collision gets a fresh iat, up to three attempts.
func (e *TransactionEngine) mintTickets(tx *gorm.DB, order *model.Order, tier *model.TicketTier, issuedAtMs int64) ([]model.Ticket, error) {
	tickets := make([]model.Ticket, 0, order.Quantity)
	for i := 0; i < order.Quantity; i++ {
		ticket := model.Ticket{
			OrderID:  order.ID,
			EventID:  order.EventID,
			UserID:   order.UserID,
			TierID:   tier.ID,
			TierName: tier.Name,
			Price:    order.UnitPrice,
			QRCode:   fmt.Sprintf("pending_%d_%d_%d", order.ID, i, issuedAtMs),
			Status:   model.TicketValid,
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return nil, err
		}

		signed := false
		for attempt := 0; attempt < 3; attempt++ {
			token, err := e.codec.Sign(qrtoken.Payload{
				TicketID: strconv.FormatUint(uint64(ticket.ID), 10),
				EventID:  strconv.FormatUint(uint64(order.EventID), 10),
				IssuedAt: issuedAtMs + int64(attempt),
			})
			if err != nil {
				return nil, err
			}
			update := tx.Model(&model.Ticket{}).Where("id = ?", ticket.ID).
				UpdateColumn("qr_code", token)
			if update.Error == nil {
				ticket.QRCode = token
				signed = true
				break
			}
			if !isDuplicateKey(update.Error) {
				return nil, update.Error
			}
		}
		if !signed {
			return nil, fmt.Errorf("could not mint unique ticket token for order %d", order.ID)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (e *TransactionEngine) loadResult(tx *gorm.DB, txn *model.Transaction) (*CompleteResult, error) {
	var order model.Order
	if err := tx.Preload("Tickets").First(&order, "id = ?", txn.OrderID).Error; err != nil {
		return nil, err
	}
	return &CompleteResult{Transaction: txn, Order: &order, Tickets: order.Tickets}, nil
}

func (e *TransactionEngine) findByReference(reference string) (*model.Transaction, error) {
	var txn model.Transaction
	if err := e.db.First(&txn, "gateway_reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}
