package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and runs the auto-migration for every
// table this package owns.
func Open(databaseURL string, verbose bool) (*gorm.DB, error) {
	level := gormlogger.Silent
	if verbose {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connecting to postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&TradeRow{},
		&SettlementRow{},
		&WeatherForecastRow{},
		&PredictionRow{},
		&DailyRiskStateRow{},
		&PendingTradeRow{},
	); err != nil {
		return nil, fmt.Errorf("storage: auto-migrating schema: %w", err)
	}

	return db, nil
}
