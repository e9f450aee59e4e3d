// Package payment defines the narrow port the engine talks to the payment
// provider through, plus the Paystack implementation.
package payment

import (
	"context"
	"errors"
	"time"
)

var ErrGateway = errors.New("payment gateway error")

// InitializeRequest starts a checkout session. AmountMinor is in kobo, the
// same minor units the engine uses internally.
type InitializeRequest struct {
	Email          string
	AmountMinor    int64
	Reference      string
	SubaccountCode string
	Metadata       map[string]any
}

type InitializeResult struct {
	OK               bool
	AuthorizationURL string
	Reference        string
	AccessCode       string
}

type CardAuthorization struct {
	CardType string
	Last4    string
	Bank     string
}

type SubaccountShare struct {
	Code         string
	SharedAmount int64 // platform share reported by the gateway
}

type VerifyResult struct {
	OK            bool
	Status        string // "success" | "failed"
	AmountMinor   int64
	Fees          int64
	Channel       string
	PaidAt        *time.Time
	Authorization *CardAuthorization
	Subaccount    *SubaccountShare
	TransactionID string
}

type RefundRequest struct {
	TransactionReference string
	AmountMinor          int64
}

type RefundResult struct {
	OK              bool
	GatewayRefundID string
}

type CreateSubaccountRequest struct {
	BusinessName     string
	BankCode         string
	AccountNumber    string
	PercentageCharge int64
}

type CreateSubaccountResult struct {
	OK             bool
	SubaccountCode string
}

// Gateway is everything the engine needs from the payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	CreateSubaccount(ctx context.Context, req CreateSubaccountRequest) (*CreateSubaccountResult, error)
	VerifySignature(rawBody []byte, signature string) bool
}
