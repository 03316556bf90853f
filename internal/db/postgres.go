/**
 * @description
 * PostgreSQL connection for the pipeline store.
 * Opens GORM, sizes the pool from config and brings the schema up to date.
 *
 * @dependencies
 * - gorm.io/gorm: ORM library
 * - gorm.io/driver/postgres: Postgres driver
 *
 * @notes
 * Replace* transactions hold one connection each, so the pool stays small.
 */

package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/logger"
)

const connMaxLifetime = 30 * time.Minute

// PoolOptions sizes the database/sql pool behind GORM.
type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
}

// ConnectPostgres opens the store database and, unless DB_AUTO_MIGRATE is off,
// migrates every pipeline table.
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := Open(cfg.DB.URL, cfg.Server.Env, PoolOptions{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := Migrate(gdb); err != nil {
			return nil, err
		}
	}
	return gdb, nil
}

// Open connects to dsn with the GORM log level matching env.
func Open(dsn, env string, pool PoolOptions) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // no prepared statements behind poolers
	}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(LogLevel(env)),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	open, idle := pool.normalize()
	sqlDB.SetMaxOpenConns(open)
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	logger.Info("✅ Connected to PostgreSQL (pool %d/%d)", idle, open)
	return gdb, nil
}

// LogLevel maps GO_ENV to the GORM logger level.
func LogLevel(env string) gormLogger.LogLevel {
	switch env {
	case "development":
		return gormLogger.Info
	case "staging":
		return gormLogger.Warn
	case "test":
		return gormLogger.Silent
	}
	return gormLogger.Error
}

// normalize fills defaults and keeps idle connections within the open limit.
func (p PoolOptions) normalize() (open, idle int) {
	open, idle = p.MaxOpenConns, p.MaxIdleConns
	if open <= 0 {
		open = 10
	}
	if idle <= 0 {
		idle = 5
	}
	if idle > open {
		idle = open
	}
	return open, idle
}
