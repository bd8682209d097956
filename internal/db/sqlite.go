package db

import (
	"github.com/glebarez/sqlite"
	"github.com/sweettrack/backend/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the SQLite database and runs migrations for all models.
func Init(dbPath string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Connection{},
		&models.DailyMetric{},
		&models.HealthProfile{},
		&models.MealLog{},
		&models.Goals{},
		&models.Settings{},
		&models.PushToken{},
	); err != nil {
		return nil, err
	}

	return gdb, nil
}
