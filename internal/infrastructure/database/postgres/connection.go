package postgres

import (
	"context"
	"device-finance-backoffice/internal/config"
	"device-finance-backoffice/internal/infrastructure/database/postgres/migrations"
	"device-finance-backoffice/internal/logger"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns = 25
	maxIdleConns = 5
)

type DB struct {
	*gorm.DB
}

func NewDB(ctx context.Context, cfg *config.Config) (*DB, error) {
	var gormLogLevel gormLogger.LogLevel
	if cfg.Server.Environment == "production" {
		gormLogLevel = gormLogger.Warn
	} else {
		gormLogLevel = gormLogger.Info
	}

	var dialector gorm.Dialector
	openConns := maxOpenConns
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000")
		// SQLite serialises writers; one connection keeps conditional updates ordered.
		openConns = 1
	default:
		dialector = postgres.Open(cfg.Database.DSN())
	}

	var db *gorm.DB
	connect := func() error {
		var err error
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         NewLogger(logger.Named("gorm").Sugar()).LogMode(gormLogLevel),
			TranslateError: true,
			NowFunc:        func() time.Time { return time.Now().UTC() },
		})
		if err != nil {
			logger.Warn("Database not ready, retrying", zap.Error(err))
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return sqlDB.PingContext(ctx)
	}

	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(connect, b); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(openConns)
	sqlDB.SetMaxIdleConns(min(maxIdleConns, openConns))
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Database connection established",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
		zap.Int("max_open_connections", openConns),
	)

	return &DB{DB: db}, nil
}

// Migrate applies every pending schema migration.
func (d *DB) Migrate(ctx context.Context) error {
	if err := migrations.New().Migrate(ctx, d.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *DB) RollbackLast(ctx context.Context) error {
	if err := migrations.New().RollbackLast(ctx, d.DB); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Health() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
