// Package audit appends structured audit rows at engine transition points.
// Emission never fails the caller: errors are logged and dropped.
package audit

import (
	"encoding/json"
	"fmt"

	"concert_manager/model"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Emitter struct {
	db   *gorm.DB
	sync bool // tests flip this to assert on rows
}

func NewEmitter(db *gorm.DB) *Emitter {
	return &Emitter{db: db}
}

// NewSyncEmitter writes rows inline instead of in a goroutine.
func NewSyncEmitter(db *gorm.DB) *Emitter {
	return &Emitter{db: db, sync: true}
}

// Emit records an action against a target. details may be nil.
func (e *Emitter) Emit(action string, actor model.Actor, target string, details map[string]any) {
	if e == nil || e.db == nil {
		return
	}
	row := model.AuditLog{
		Action:   action,
		ActorID:  actor.UserID,
		IsSystem: actor.IsSystem,
		Target:   target,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			row.Details = string(raw)
		}
	}

	if e.sync {
		e.insert(row)
		return
	}
	go e.insert(row)
}

// SystemError reports an internal fault; used where the caller must stay 2xx.
func (e *Emitter) SystemError(target string, err error) {
	e.Emit(model.AuditSystemError, model.Actor{IsSystem: true}, target, map[string]any{
		"error": fmt.Sprint(err),
	})
}

func (e *Emitter) insert(row model.AuditLog) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("audit emit panic: %v", r)
		}
	}()
	if err := e.db.Create(&row).Error; err != nil {
		log.WithField("action", row.Action).Errorf("audit emit failed: %v", err)
	}
}
