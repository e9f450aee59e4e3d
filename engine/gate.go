package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"concert_manager/audit"
	"concert_manager/model"
	"concert_manager/qrtoken"

	"gorm.io/gorm"
)

// Scan outcomes. Exactly one scanner wins a ticket; every other device
// sees ALREADY_USED or RACE_CONDITION.
const (
	ScanValid         = "VALID"
	ScanInvalid       = "INVALID"
	ScanNotFound      = "NOT_FOUND"
	ScanWrongEvent    = "WRONG_EVENT"
	ScanNotAssigned   = "NOT_ASSIGNED"
	ScanAlreadyUsed   = "ALREADY_USED"
	ScanCancelled     = "CANCELLED"
	ScanRaceCondition = "RACE_CONDITION"
)

type ScanResult struct {
	Status      string        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Ticket      *model.Ticket `json:"ticket,omitempty"`
	CheckedInAt *time.Time    `json:"checkedInAt,omitempty"`
}

// GateValidator verifies ticket tokens at the venue gate and enforces
// single check-in with a compare-and-set on the ticket row. No lock is
// held across the decision; any number of engine instances agree.
type GateValidator struct {
	db    *gorm.DB
	codec *qrtoken.Codec
	audit *audit.Emitter
	now   Clock
}

func NewGateValidator(db *gorm.DB, codec *qrtoken.Codec, emitter *audit.Emitter) *GateValidator {
	return &GateValidator{db: db, codec: codec, audit: emitter, now: time.Now}
}

// Scan validates a presented token for the scanning user. claimedEventID
// zero means the scanner did not pin an event.
func (g *GateValidator) Scan(ctx context.Context, token string, scanner model.Actor, claimedEventID uint) *ScanResult {
	payload, err := g.codec.Verify(token)
	if err != nil {
		return &ScanResult{Status: ScanInvalid, Message: err.Error()}
	}

	var ticket model.Ticket
	if err := g.db.WithContext(ctx).First(&ticket, "qr_code = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ScanResult{Status: ScanNotFound}
		}
		return &ScanResult{Status: ScanInvalid, Message: "lookup failed"}
	}

	// token payload and row must agree
	if payload.TicketID != strconv.FormatUint(uint64(ticket.ID), 10) {
		return &ScanResult{Status: ScanInvalid, Message: "token mismatch"}
	}

	if claimedEventID != 0 && claimedEventID != ticket.EventID {
		return &ScanResult{Status: ScanWrongEvent}
	}

	if scanner.Role == model.RoleValidator {
		var assigned int64
		g.db.Model(&model.EventValidator{}).
			Where("event_id = ? AND user_id = ?", ticket.EventID, scanner.UserID).
			Count(&assigned)
		if assigned == 0 {
			return &ScanResult{Status: ScanNotAssigned}
		}
	}

	switch ticket.Status {
	case model.TicketUsed:
		return &ScanResult{Status: ScanAlreadyUsed, CheckedInAt: ticket.CheckedInAt}
	case model.TicketCancelled:
		return &ScanResult{Status: ScanCancelled}
	}

	now := g.now()
	cas := g.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", ticket.ID, model.TicketValid).
		UpdateColumns(map[string]any{
			"status":        model.TicketUsed,
			"checked_in_at": now,
			"checked_in_by": scanner.UserID,
		})
	if cas.Error != nil {
		return &ScanResult{Status: ScanInvalid, Message: "check-in failed"}
	}
	if cas.RowsAffected == 0 {
		// another device won between the read and the update
		return &ScanResult{Status: ScanRaceCondition}
	}

	ticket.Status = model.TicketUsed
	ticket.CheckedInAt = &now
	ticket.CheckedInBy = &scanner.UserID

	g.audit.Emit(model.AuditTicketCheckedIn, scanner,
		fmt.Sprintf("ticket:%d", ticket.ID), map[string]any{"eventId": ticket.EventID})

	return &ScanResult{Status: ScanValid, Ticket: &ticket, CheckedInAt: &now}
}
