package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/udonggeum-storefront/config"
	appLogger "github.com/ikkim/udonggeum-storefront/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultMaxIdleConns = 10
	defaultMaxOpenConns = 100
	pingTimeout         = 5 * time.Second
)

var DB *gorm.DB

// Initialize connects to the storefront's postgres database
func Initialize(cfg *config.DatabaseConfig) error {
	appLogger.Info("Connecting to storefront database", map[string]interface{}{
		"host":     cfg.Host,
		"port":     cfg.Port,
		"database": cfg.DBName,
		"user":     cfg.User,
	})
	return connect(postgres.Open(cfg.DSN()), cfg)
}

// connect opens dialector, applies the pool settings and checks the
// connection before publishing it as DB.
func connect(dialector gorm.Dialector, cfg *config.DatabaseConfig) error {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	maxIdle, maxOpen := cfg.MaxIdleConns, cfg.MaxOpenConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("database is not reachable: %w", err)
	}

	DB = conn
	appLogger.Info("Storefront database ready", map[string]interface{}{
		"dialect":           conn.Dialector.Name(),
		"tables":            len(Models()),
		"max_idle_conns":    maxIdle,
		"max_open_conns":    maxOpen,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
