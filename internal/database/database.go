package database

import (
	"database/sql"
	"fmt"
	"repair-intake/internal/config"
	"repair-intake/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Open initializes the database connection and migrates the schema. An empty
// or freshly created database file starts the application with an empty
// record list and default settings.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Type {
	case "sqlite":
		// Use pure Go SQLite driver (modernc.org/sqlite)
		sqlDB, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db, err := gorm.Open(sqlite.Dialector{
			Conn: sqlDB,
		}, &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GORM: %w", err)
		}

		if err := db.AutoMigrate(
			&models.RepairRecord{},
			&models.CallLog{},
			&models.Setting{},
			&models.NotificationLog{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
