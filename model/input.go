package model

type PurchaseInput struct {
	EventID  uint `json:"eventId" validate:"required"`
	TierID   uint `json:"tierId" validate:"required"`
	Quantity int  `json:"quantity" validate:"required,min=1,max=10"`
}

type VerifyInput struct {
	Reference string `json:"reference" validate:"required"`
}

type RefundInput struct {
	Amount *int64 `json:"amount" validate:"omitempty,gt=0"`
	Reason string `json:"reason" validate:"required"`
}

type ScanInput struct {
	QRCode  string `json:"qrCode" validate:"required"`
	EventID uint   `json:"eventId" validate:"omitempty"`
}

type CreateSubaccountInput struct {
	BusinessName  string `json:"businessName" validate:"required"`
	BankCode      string `json:"bankCode" validate:"required"`
	AccountNumber string `json:"accountNumber" validate:"required"`
}
