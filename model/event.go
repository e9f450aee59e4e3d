package model

import "time"

const (
	EventDraft     = "draft"
	EventPublished = "published"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

type Event struct {
	DTO
	OrganizerID uint      `gorm:"index" json:"organizerId"`
	Title       string    `gorm:"size:255" json:"title"`
	Status      string    `gorm:"size:16;not null;default:'draft'" json:"status"`
	EventDate   time.Time `json:"eventDate"`

	Tiers []TicketTier `gorm:"foreignKey:EventID" json:"ticketTiers,omitempty"`

	TotalTicketsSold int   `gorm:"not null;default:0" json:"totalTicketsSold"`
	TotalRevenue     int64 `gorm:"not null;default:0" json:"totalRevenue"`

	Validators []EventValidator `gorm:"foreignKey:EventID" json:"validators,omitempty"`
}

// TicketTier is a normalized row under its Event; sold_count updates are
// serialized by a conditional UPDATE inside the completion transaction.
type TicketTier struct {
	DTO
	EventID    uint       `gorm:"index;not null" json:"eventId"`
	Name       string     `gorm:"size:128;not null" json:"name"`
	Price      int64      `gorm:"not null" json:"price"`
	Quantity   int        `gorm:"not null" json:"quantity"`
	SoldCount  int        `gorm:"not null;default:0" json:"soldCount"`
	MaxPerUser int        `gorm:"not null;default:4" json:"maxPerUser"`
	SaleStart  *time.Time `json:"saleStart,omitempty"`
	SaleEnd    *time.Time `json:"saleEnd,omitempty"`
}

// Remaining is the sellable headroom; reservation happens at completion.
func (t *TicketTier) Remaining() int {
	return t.Quantity - t.SoldCount
}

// EventValidator assigns a gate-scanner user to an event.
type EventValidator struct {
	DTO
	EventID uint `gorm:"index:idx_event_validator,unique" json:"eventId"`
	UserID  uint `gorm:"index:idx_event_validator,unique" json:"userId"`
}
