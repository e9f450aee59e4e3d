package model

// Organizer is the subset the engine reads; the full profile is owned by
// the upstream user module.
type Organizer struct {
	DTO
	UserID             uint   `gorm:"index" json:"userId"`
	BusinessName       string `gorm:"size:255" json:"businessName"`
	SubaccountCode     string `gorm:"size:64" json:"subaccountCode,omitempty"`
	PlatformFeePercent int64  `gorm:"not null;default:10" json:"platformFeePercent"`
	BankCode           string `gorm:"size:16" json:"bankCode,omitempty"`
	AccountNumber      string `gorm:"size:32" json:"accountNumber,omitempty"`
}

// OrganizerPercent is the organizer's revenue share in percent.
func (o *Organizer) OrganizerPercent() int64 {
	return 100 - o.PlatformFeePercent
}
