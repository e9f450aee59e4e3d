package engine

import (
	"context"
	"errors"
	"fmt"

	"concert_manager/model"
	"concert_manager/payment"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InitiateResult is what the purchase endpoint returns.
type InitiateResult struct {
	Order          *model.Order       `json:"order"`
	Transaction    *model.Transaction `json:"transaction"`
	PaymentURL     string             `json:"paymentUrl"`
	IdempotencyKey string             `json:"idempotencyKey"`
	IsIdempotent   bool               `json:"isIdempotent"`
}

// Initiate creates the Order + Transaction pair and opens a checkout
// session with the gateway. Rows are committed before the gateway is
// called so no uncommitted state can leak; a gateway failure flips the
// fresh transaction to failed.
//
// A matching idempotencyKey short-circuits everything: the stored pair is
// returned unchanged and the gateway is not called again.
func (e *TransactionEngine) Initiate(ctx context.Context, actor model.Actor, input model.PurchaseInput, idempotencyKey string, meta model.ClientMeta) (*InitiateResult, error) {
	if input.Quantity < 1 || input.Quantity > 10 {
		return nil, ErrInvalidQuantity
	}

	if idempotencyKey != "" {
		if result, err := e.findByIdempotencyKey(idempotencyKey); err == nil {
			return result, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var event model.Event
	if err := e.db.First(&event, "id = ? AND deleted_at IS NULL", input.EventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if event.Status != model.EventPublished {
		return nil, ErrEventNotPurchasable
	}

	var tier model.TicketTier
	if err := e.db.First(&tier, "id = ? AND event_id = ?", input.TierID, input.EventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	if tier.Remaining() < input.Quantity {
		return nil, ErrTierSoldOut
	}

	var held int64
	if err := e.db.Model(&model.Ticket{}).
		Where("user_id = ? AND event_id = ? AND tier_id = ? AND status <> ?",
			actor.UserID, input.EventID, input.TierID, model.TicketCancelled).
		Count(&held).Error; err != nil {
		return nil, err
	}
	if int(held)+input.Quantity > tier.MaxPerUser {
		return nil, ErrTierLimit
	}

	now := e.now()
	reference := fmt.Sprintf("order_%d_%s", actor.UserID, uuid.NewString())
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("txn_%d_%d_%d_%s", actor.UserID, input.EventID, input.TierID, uuid.NewString())
	}

	var organizer model.Organizer
	if err := e.db.First(&organizer, "id = ?", event.OrganizerID).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order := model.Order{
		UserID:            actor.UserID,
		EventID:           event.ID,
		TierID:            tier.ID,
		TierName:          tier.Name,
		Quantity:          input.Quantity,
		UnitPrice:         tier.Price,
		TotalAmount:       tier.Price * int64(input.Quantity),
		PaymentStatus:     model.OrderPending,
		PaystackReference: reference,
	}
	txn := model.Transaction{
		IdempotencyKey:          idempotencyKey,
		Status:                  model.TxnInitiated,
		UserID:                  actor.UserID,
		EventID:                 event.ID,
		Amount:                  order.TotalAmount,
		GatewayReference:        reference,
		OrganizerSubaccountCode: organizer.SubaccountCode,
		MaxRetries:              e.opts.MaxRetries,
		InitiatedAt:             &now,
		MetaEmail:               actor.Email,
		MetaIP:                  meta.IP,
		MetaUserAgent:           meta.UserAgent,
		MetaTierName:            tier.Name,
		MetaQuantity:            input.Quantity,
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		txn.OrderID = order.ID
		return tx.Create(&txn).Error
	})
	if err != nil {
		// a concurrent initiate with the same key won the insert race
		if isDuplicateKey(err) {
			if result, lookupErr := e.findByIdempotencyKey(idempotencyKey); lookupErr == nil {
				return result, nil
			}
		}
		return nil, err
	}

	e.audit.Emit(model.AuditPaymentInitiated, actor, fmt.Sprintf("transaction:%d", txn.ID), map[string]any{
		"reference": reference,
		"amount":    txn.Amount,
		"quantity":  input.Quantity,
	})

	gwCtx, cancel := context.WithTimeout(ctx, e.opts.GatewayTimeout)
	defer cancel()
	init, err := e.gateway.Initialize(gwCtx, payment.InitializeRequest{
		Email:          actor.Email,
		AmountMinor:    txn.Amount,
		Reference:      reference,
		SubaccountCode: organizer.SubaccountCode,
		Metadata: map[string]any{
			"orderId":  order.ID,
			"eventId":  event.ID,
			"tierName": tier.Name,
			"quantity": input.Quantity,
		},
	})
	if err != nil || init == nil || !init.OK {
		log.WithField("reference", reference).Warnf("gateway initialize failed: %v", err)
		if _, failErr := e.Fail(ctx, txn.ID, "init failed", "gateway_init", fmt.Sprint(err)); failErr != nil {
			log.Errorf("could not fail transaction %d: %v", txn.ID, failErr)
		}
		return nil, ErrGatewayInit
	}

	txn.GatewayAuthURL = init.AuthorizationURL
	if err := e.db.Model(&model.Transaction{}).Where("id = ?", txn.ID).
		Update("gateway_auth_url", init.AuthorizationURL).Error; err != nil {
		log.Warnf("could not store authorization url for transaction %d: %v", txn.ID, err)
	}

	return &InitiateResult{
		Order:          &order,
		Transaction:    &txn,
		PaymentURL:     init.AuthorizationURL,
		IdempotencyKey: idempotencyKey,
		IsIdempotent:   false,
	}, nil
}

func (e *TransactionEngine) findByIdempotencyKey(key string) (*InitiateResult, error) {
	var txn model.Transaction
	if err := e.db.First(&txn, "idempotency_key = ?", key).Error; err != nil {
		return nil, err
	}
	var order model.Order
	if err := e.db.Preload("Tickets").First(&order, "id = ?", txn.OrderID).Error; err != nil {
		return nil, err
	}
	return &InitiateResult{
		Order:          &order,
		Transaction:    &txn,
		PaymentURL:     txn.GatewayAuthURL,
		IdempotencyKey: key,
		IsIdempotent:   true,
	}, nil
}
