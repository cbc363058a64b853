package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/pos/internal/infrastructure/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DatabaseConfig selects and tunes the SQL database holding the snapshots
type DatabaseConfig struct {
	Driver        string // sqlite, postgres
	DSN           string
	LogLevel      gormlogger.LogLevel
	TraceEnabled  bool // register otelgorm
	SlowThreshold time.Duration
}

// Database holds the database connection
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the database and migrates the snapshot table
func NewDatabase(cfg DatabaseConfig, log *zap.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewSQLLogger(logger.Named(log, "gorm"), logger.SQLLoggerConfig{
			Level:         cfg.LogLevel,
			SlowThreshold: cfg.SlowThreshold,
		}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.TraceEnabled {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithDBName(cfg.Driver),
			otelgorm.WithoutQueryVariables(),
		)
		if err := db.Use(plugin); err != nil {
			return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	if err := db.AutoMigrate(&CollectionSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// CollectionSnapshot is one persisted collection
type CollectionSnapshot struct {
	Name      string `gorm:"primaryKey;size:100"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (CollectionSnapshot) TableName() string {
	return "collection_snapshots"
}

// DatabaseBackend keeps snapshots as rows of collection_snapshots. Each
// Write is a single upsert statement.
type DatabaseBackend struct {
	db *Database
}

// NewDatabaseBackend wraps an open database
func NewDatabaseBackend(db *Database) *DatabaseBackend {
	return &DatabaseBackend{db: db}
}

func (b *DatabaseBackend) Read(ctx context.Context, name string) ([]byte, error) {
	var row CollectionSnapshot
	err := b.db.DB.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (b *DatabaseBackend) Write(ctx context.Context, name string, data []byte) error {
	row := CollectionSnapshot{Name: name, Data: data, UpdatedAt: time.Now()}
	return b.db.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}
