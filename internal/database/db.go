package database

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL dialect
	_ "github.com/mattn/go-sqlite3"              // SQLite driver

	"brigade/internal/models"
)

// Open connects to the configured database and migrates the kitchen schema.
func Open(driver, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(100)
	db.DB().SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.Ticket{},
		&models.AuditEntry{},
		&models.KitchenSettings{},
		&models.Station{},
	).Error; err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

// SeedStations ensures the hub has a default station set when none exists.
func SeedStations(db *gorm.DB, hubID string) error {
	var count int64
	if err := db.Model(&models.Station{}).Where("hub_id = ?", hubID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []models.Station{
		{ID: "hot", HubID: hubID, Name: "Hot Line", Active: true},
		{ID: "cold", HubID: hubID, Name: "Cold Line", Active: true},
		{ID: "pastry", HubID: hubID, Name: "Pastry", Active: true},
		{ID: "grill", HubID: hubID, Name: "Grill", Active: true},
	}
	for _, station := range defaults {
		if err := db.Create(&station).Error; err != nil {
			return err
		}
	}
	return nil
}
