package model

import (
	"errors"
	"time"
)

// Transaction statuses. The ledger row moves strictly along the table in
// AllowedTransitions; anything else is rejected with ErrInvalidTransition.
const (
	TxnInitiated         = "initiated"
	TxnProcessing        = "processing"
	TxnCompleted         = "completed"
	TxnFailed            = "failed"
	TxnRefunded          = "refunded"
	TxnPartiallyRefunded = "partially_refunded"
)

var ErrInvalidTransition = errors.New("invalid transaction state transition")

var AllowedTransitions = map[string][]string{
	TxnInitiated:         {TxnProcessing, TxnFailed},
	TxnProcessing:        {TxnCompleted, TxnFailed},
	TxnCompleted:         {TxnPartiallyRefunded, TxnRefunded},
	TxnPartiallyRefunded: {TxnRefunded},
	TxnFailed:            {TxnProcessing},
	TxnRefunded:          {}, // terminal
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to string) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transaction is the payment ledger row. All monetary fields are integer
// minor units (kobo); conversion happens only at the gateway boundary.
type Transaction struct {
	DTO
	IdempotencyKey string `gorm:"size:128;uniqueIndex;not null" json:"idempotencyKey"`
	Status         string `gorm:"size:24;not null;default:'initiated'" json:"status"`
	UserID         uint   `gorm:"index" json:"userId"`
	OrderID        uint   `gorm:"uniqueIndex" json:"orderId"`
	EventID        uint   `gorm:"index" json:"eventId"`
	Amount         int64  `gorm:"not null" json:"amount"`
	Currency       string `gorm:"size:8;not null;default:'NGN'" json:"currency"`

	// Gateway echo
	GatewayProvider  string `gorm:"size:32;default:'paystack'" json:"gatewayProvider"`
	GatewayReference string `gorm:"size:128;index" json:"gatewayReference"`
	GatewayTxnID     string `gorm:"size:128" json:"gatewayTransactionId,omitempty"`
	GatewayAuthURL   string `gorm:"size:512" json:"gatewayAuthUrl,omitempty"`
	GatewayChannel   string `gorm:"size:32" json:"gatewayChannel,omitempty"`
	GatewayAuthMeta  string `gorm:"type:text" json:"gatewayAuthMeta,omitempty"`
	GatewayFees      int64  `json:"gatewayFees"`

	// Revenue split
	PlatformAmount          int64  `json:"platformAmount"`
	OrganizerAmount         int64  `json:"organizerAmount"`
	OrganizerSubaccountCode string `gorm:"size:64" json:"organizerSubaccountCode,omitempty"`

	RetryCount  int        `gorm:"not null;default:0" json:"retryCount"`
	MaxRetries  int        `gorm:"not null;default:3" json:"maxRetries"`
	LastRetryAt *time.Time `json:"lastRetryAt,omitempty"`
	NextRetryAt *time.Time `gorm:"index" json:"nextRetryAt,omitempty"`

	FailureReason  string `gorm:"size:255" json:"failureReason,omitempty"`
	FailureCode    string `gorm:"size:64" json:"failureCode,omitempty"`
	FailureDetails string `gorm:"type:text" json:"failureDetails,omitempty"`

	Refunds       []Refund `gorm:"foreignKey:TransactionID" json:"refunds,omitempty"`
	TotalRefunded int64    `gorm:"not null;default:0" json:"totalRefunded"`

	InitiatedAt  *time.Time `json:"initiatedAt,omitempty"`
	ProcessingAt *time.Time `json:"processingAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	FailedAt     *time.Time `json:"failedAt,omitempty"`

	// Client metadata
	MetaEmail     string `gorm:"size:255" json:"metaEmail,omitempty"`
	MetaIP        string `gorm:"size:64" json:"metaIp,omitempty"`
	MetaUserAgent string `gorm:"size:255" json:"metaUserAgent,omitempty"`
	MetaTierName  string `gorm:"size:128" json:"metaTierName,omitempty"`
	MetaQuantity  int    `json:"metaQuantity,omitempty"`
}

// Refund is an append-only record under its Transaction.
type Refund struct {
	DTO
	TransactionID   uint      `gorm:"index;not null" json:"transactionId"`
	Amount          int64     `gorm:"not null" json:"amount"`
	Reason          string    `gorm:"size:255" json:"reason"`
	ProcessedBy     uint      `json:"processedBy"`
	ProcessedAt     time.Time `json:"processedAt"`
	GatewayRefundID string    `gorm:"size:128" json:"gatewayRefundId,omitempty"`
}

// RefundOutbox holds refund intents the engine could not execute inline
// (oversold-at-completion recovery). A payout process outside the core
// drains it.
type RefundOutbox struct {
	DTO
	TransactionID uint   `gorm:"index;not null" json:"transactionId"`
	Amount        int64  `gorm:"not null" json:"amount"`
	Reason        string `gorm:"size:255" json:"reason"`
	Status        string `gorm:"size:16;not null;default:'pending'" json:"status"` // pending, processed
}
