package database

import (
	"fmt"

	"concert_manager/config"
	"concert_manager/model"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres pool and migrates the schema. TranslateError
// is on so unique-constraint hits surface as gorm.ErrDuplicatedKey.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	log.Info("connection opened to database")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database migrated")
	return db, nil
}

// Migrate is split out so tests can run it against SQLite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Organizer{},
		&model.Event{},
		&model.TicketTier{},
		&model.EventValidator{},
		&model.Order{},
		&model.Transaction{},
		&model.Refund{},
		&model.RefundOutbox{},
		&model.Ticket{},
		&model.AuditLog{},
	)
}
