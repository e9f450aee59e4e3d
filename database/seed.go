package database

import (
	"time"

	"concert_manager/model"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SeedData creates a demo organizer and a published event with two tiers.
// Only used in development; it is a no-op once data exists.
func SeedData(db *gorm.DB) {
	var count int64
	db.Model(&model.Event{}).Count(&count)
	if count > 0 {
		return
	}

	organizer := model.Organizer{
		UserID:             1,
		BusinessName:       "Lagos Live Events",
		PlatformFeePercent: 10,
	}
	if err := db.Create(&organizer).Error; err != nil {
		log.Warnf("seed organizer failed: %v", err)
		return
	}

	event := model.Event{
		OrganizerID: organizer.ID,
		Title:       "Afrobeats Night",
		Status:      model.EventPublished,
		EventDate:   time.Now().AddDate(0, 1, 0),
	}
	if err := db.Create(&event).Error; err != nil {
		log.Warnf("seed event failed: %v", err)
		return
	}

	tiers := []model.TicketTier{
		{EventID: event.ID, Name: "Regular", Price: 500000, Quantity: 500, MaxPerUser: 4},
		{EventID: event.ID, Name: "VIP", Price: 2000000, Quantity: 50, MaxPerUser: 2},
	}
	if err := db.Create(&tiers).Error; err != nil {
		log.Warnf("seed tiers failed: %v", err)
		return
	}
	log.Info("seeded demo event with ticket tiers")
}
