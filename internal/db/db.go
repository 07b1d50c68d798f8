package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"govportal/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool limits mirror the portal's production connection settings.
const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxIdleTime = 30 * time.Second
)

// Open opens a gorm handle on dialector and verifies it with a ping.
func Open(ctx context.Context, dialector gorm.Dialector) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

// OpenPostgres connects to dsn, retrying per policy, and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, connectTimeout time.Duration, policy RetryPolicy, log *zap.Logger) (*gorm.DB, error) {
	dsn = withConnectTimeout(dsn, connectTimeout)
	gdb, err := ConnectWithRetry(ctx, policy, log, func(ctx context.Context) (*gorm.DB, error) {
		return Open(ctx, postgres.Open(dsn))
	})
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")

	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database migration completed")
	return gdb, nil
}

// Migrate creates tables and the unique indexes the vote ledger relies on.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Candidate{},
		&models.Vote{},
		&models.Complaint{},
		&models.Document{},
	)
}

func withConnectTimeout(dsn string, d time.Duration) string {
	if d <= 0 || strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%sconnect_timeout=%d", dsn, sep, secs)
	}
	return fmt.Sprintf("%s connect_timeout=%d", dsn, secs)
}
