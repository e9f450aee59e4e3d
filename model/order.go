package model

const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderFailed    = "failed"
	OrderRefunded  = "refunded"
)

// Order is the buyer intent. Tickets are attached only once its
// transaction completes; pending orders never own tickets.
type Order struct {
	DTO
	UserID      uint   `gorm:"index" json:"userId"`
	EventID     uint   `gorm:"index" json:"eventId"`
	TierID      uint   `json:"tierId"`
	TierName    string `gorm:"size:128" json:"tierName"`
	Quantity    int    `gorm:"not null" json:"quantity"`
	UnitPrice   int64  `gorm:"not null" json:"unitPrice"`
	TotalAmount int64  `gorm:"not null" json:"totalAmount"`

	PaymentStatus string `gorm:"size:16;not null;default:'pending'" json:"paymentStatus"`

	Tickets []Ticket `gorm:"foreignKey:OrderID" json:"tickets,omitempty"`

	PlatformAmount  int64 `json:"platformAmount"`
	OrganizerAmount int64 `json:"organizerAmount"`

	// Gateway echo, copied from the transaction on completion
	PaystackReference string `gorm:"size:128;index" json:"paystackReference,omitempty"`
	PaymentChannel    string `gorm:"size:32" json:"paymentChannel,omitempty"`
}
