package pos

import (
	"context"
	"fmt"

	"github.com/erp/pos/internal/infrastructure/config"
	"github.com/erp/pos/internal/infrastructure/logger"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"github.com/erp/pos/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// OpenBackend opens the storage selected by cfg. The returned close function
// releases the backend and is never nil.
func OpenBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (persistence.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case "", config.DriverFile:
		backend, err := persistence.NewFileBackend(cfg.Storage.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("open data directory: %w", err)
		}
		log.Info("Using file storage", zap.String("dir", backend.Dir()))
		return backend, noop, nil

	case config.DriverSQLite, config.DriverPostgres:
		db, err := persistence.NewDatabase(persistence.DatabaseConfig{
			Driver:        cfg.Storage.Driver,
			DSN:           cfg.Storage.DSN,
			LogLevel:      logger.ParseSQLLogLevel(cfg.Log.Level),
			TraceEnabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			SlowThreshold: cfg.Storage.SlowThreshold,
		}, log)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Ping(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("database not reachable: %w", err)
		}
		log.Info("Using database storage", zap.String("driver", cfg.Storage.Driver))
		return persistence.NewDatabaseBackend(db), db.Close, nil

	case config.DriverS3:
		backend, err := storage.NewS3Backend(ctx, &cfg.Storage.S3, storage.WithLogger(logger.Named(log, "s3")))
		if err != nil {
			return nil, noop, err
		}
		if err := backend.EnsureBucket(ctx); err != nil {
			return nil, noop, fmt.Errorf("prepare bucket: %w", err)
		}
		log.Info("Using object storage", zap.String("bucket", backend.Bucket()))
		return backend, noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
