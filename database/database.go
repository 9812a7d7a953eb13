package database

import (
	"log/slog"

	"enrollment-gateway/config"
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates the cache tables.
func Open(cfg config.Config, log *slog.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.Production() {
		level = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}

	if err := db.AutoMigrate(
		&courses.Course{},
		&enrollment.Snapshot{},
	); err != nil {
		return nil, errors.Wrap(err, "auto-migrate")
	}

	log.Info("database connected and migrated")
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
