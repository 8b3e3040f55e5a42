package db

import (
	"fmt"
	"log"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/config"
	"github.com/Arnav10090/Customer-web-portal/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectWithRetry подключается к PostgreSQL, повторяя попытки, пока база не поднимется
func ConnectWithRetry(cfg *config.Config) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < cfg.DBConnectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
			// Нарушения уникальности приходят как gorm.ErrDuplicatedKey
			TranslateError: true,
		})
		if err == nil {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("не удалось получить доступ к sql.DB: %w", err)
			}

			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
			sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

			return db, nil
		}
		log.Printf("Попытка подключения к БД %d из %d не удалась: %v\n", i+1, cfg.DBConnectAttempts, err)
		time.Sleep(cfg.DBConnectRetryInterval)
	}
	return nil, fmt.Errorf("не удалось подключиться к базе данных после %d попыток: %v", cfg.DBConnectAttempts, err)
}

// AutoMigrate создает и обновляет таблицы всех моделей портала
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Customer{},
		&models.Zone{},
		&models.Identity{},
		&models.Vehicle{},
		&models.PurchaseOrder{},
		&models.RFTag{},
		&models.DriverVehicleTagging{},
		&models.PODriverVehicleTagging{},
		&models.GateEntrySubmission{},
		&models.AuditLog{},
		&models.Document{},
	)
}
