package model

// AuditLog rows are emitted fire-and-forget at engine transition points.
// Storage and search over them belong to the upstream audit module; the
// engine only appends.
type AuditLog struct {
	DTO
	Action   string `gorm:"size:64;index" json:"action"`
	ActorID  uint   `json:"actorId"`
	IsSystem bool   `json:"isSystem"`
	Target   string `gorm:"size:128" json:"target"`
	Details  string `gorm:"type:text" json:"details,omitempty"`
}

const (
	AuditPaymentInitiated = "payment.initiated"
	AuditPaymentCompleted = "payment.completed"
	AuditPaymentFailed    = "payment.failed"
	AuditPaymentRetried   = "payment.retried"
	AuditRefundProcessed  = "refund.processed"
	AuditTicketCheckedIn  = "ticket.checked_in"
	AuditWebhookReceived  = "webhook.received"
	AuditSystemError      = "system.error"
)
