package database

import (
	"context"
	"fmt"
	"time"

	"office-hub/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const retryDelay = 2 * time.Second

// Connect открывает соединение с postgres, повторяя попытки пока БД поднимается.
func Connect(ctx context.Context, dsn string, attempts int, log zerolog.Logger) (*gorm.DB, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= attempts; i++ {
		log.Info().Int("attempt", i).Int("max", attempts).Msg("trying to connect to DB")

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			log.Info().Msg("connected to DB successfully")
			break
		}

		log.Warn().Err(err).Msg("failed to connect to DB")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to db after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate — миграции всех моделей приложения.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&models.Department{},
		&models.User{},
		&models.Project{},
		&models.AssetCategory{},
		&models.Location{},
		&models.Vendor{},
		&models.Asset{},
		&models.Task{},
		&models.TaskComment{},
		&models.TaskAttachment{},
		&models.TaskChecklistItem{},
		&models.TaskDependency{},
		&models.AssetAttachment{},
		&models.TaskActivity{},
		&models.AssetLogEntry{},
		&models.MaintenanceRecord{},
	)
}
