package model

import "time"

const (
	TicketValid       = "valid"
	TicketUsed        = "used"
	TicketCancelled   = "cancelled"
	TicketTransferred = "transferred"
)

// Ticket is one seat of admission, created exclusively inside the
// completion transaction. QRCode carries the full signed token.
type Ticket struct {
	DTO
	OrderID  uint   `gorm:"index" json:"orderId"`
	EventID  uint   `gorm:"index:idx_ticket_event_status" json:"eventId"`
	UserID   uint   `gorm:"index" json:"userId"`
	TierID   uint   `json:"tierId"`
	TierName string `gorm:"size:128" json:"tierName"`
	Price    int64  `gorm:"not null" json:"price"`

	QRCode string `gorm:"size:512;uniqueIndex;not null" json:"qrCode"`
	Status string `gorm:"size:16;not null;default:'valid';index:idx_ticket_event_status" json:"status"`

	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
	CheckedInBy *uint      `json:"checkedInBy,omitempty"`
}
