// Package webhook ingests gateway notifications. The contract with the
// gateway is strict: always answer 2xx, report trouble only in the body,
// or the gateway keeps retrying.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"concert_manager/audit"
	"concert_manager/engine"
	"concert_manager/model"
	"concert_manager/payment"

	log "github.com/sirupsen/logrus"
)

// Result is the body returned to the gateway; Success=false never changes
// the HTTP status.
type Result struct {
	Success bool   `json:"success"`
	Handled bool   `json:"handled"`
	Message string `json:"message,omitempty"`
}

type Processor struct {
	engine  *engine.TransactionEngine
	gateway payment.Gateway
	audit   *audit.Emitter
}

func NewProcessor(eng *engine.TransactionEngine, gw payment.Gateway, emitter *audit.Emitter) *Processor {
	return &Processor{engine: eng, gateway: gw, audit: emitter}
}

type eventEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Fees      int64  `json:"fees"`
		Channel   string `json:"channel"`
		Message   string `json:"gateway_response"`
	} `json:"data"`
}

// Ingest checks the signature, parses the event and dispatches it.
// Completion is idempotent at the state boundary, so duplicate deliveries
// are absorbed without a dedup table.
func (p *Processor) Ingest(ctx context.Context, rawBody []byte, signature string) Result {
	if !p.gateway.VerifySignature(rawBody, signature) {
		log.Warn("webhook rejected: invalid signature")
		return Result{Success: false, Message: "Invalid signature"}
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		log.Warnf("webhook rejected: bad payload: %v", err)
		return Result{Success: false, Message: "Invalid payload"}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("webhook handler panic: %v", r)
			p.audit.SystemError("webhook:"+envelope.Event, fmt.Errorf("panic: %v", r))
		}
	}()

	switch envelope.Event {
	case "charge.success":
		data := &payment.VerifyResult{
			OK:            true,
			Status:        "success",
			AmountMinor:   envelope.Data.Amount,
			Fees:          envelope.Data.Fees,
			Channel:       envelope.Data.Channel,
			TransactionID: fmt.Sprintf("%d", envelope.Data.ID),
		}
		if _, err := p.engine.CompleteByReference(ctx, envelope.Data.Reference, data); err != nil {
			return p.handlerError(envelope, err)
		}
		return Result{Success: true, Handled: true}

	case "charge.failed":
		_, err := p.engine.FailByReference(ctx, envelope.Data.Reference,
			"charge failed", "charge_failed", envelope.Data.Message)
		if err != nil && !errors.Is(err, model.ErrInvalidTransition) {
			return p.handlerError(envelope, err)
		}
		return Result{Success: true, Handled: true}

	case "transfer.success", "transfer.failed", "refund.processed":
		// no core state change in v1, keep the trail
		p.audit.Emit(model.AuditWebhookReceived, model.Actor{IsSystem: true},
			"webhook:"+envelope.Event, map[string]any{"reference": envelope.Data.Reference})
		return Result{Success: true, Handled: true}

	default:
		return Result{Success: true, Handled: false}
	}
}

func (p *Processor) handlerError(envelope eventEnvelope, err error) Result {
	// oversold-at-completion is a handled outcome: the refund intent is
	// already queued and the gateway must not retry
	if errors.Is(err, engine.ErrOversold) {
		return Result{Success: true, Handled: true, Message: "oversold, refund queued"}
	}
	log.WithField("event", envelope.Event).
		WithField("reference", envelope.Data.Reference).
		Errorf("webhook handler failed: %v", err)
	p.audit.SystemError("webhook:"+envelope.Event, err)
	return Result{Success: false, Handled: false, Message: "handler error"}
}
