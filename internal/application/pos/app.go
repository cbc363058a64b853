// Package pos wires the point-of-sale services together. App owns exactly one
// instance of every service, so all callers share the same collections.
package pos

import (
	"context"
	"errors"

	appidentity "github.com/erp/pos/internal/application/identity"
	appinventory "github.com/erp/pos/internal/application/inventory"
	apppartner "github.com/erp/pos/internal/application/partner"
	appreport "github.com/erp/pos/internal/application/report"
	apptrade "github.com/erp/pos/internal/application/trade"
	"github.com/erp/pos/internal/domain/identity"
	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/partner"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/erp/pos/internal/infrastructure/config"
	"github.com/erp/pos/internal/infrastructure/logger"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"github.com/erp/pos/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// App holds the services of one point of sale
type App struct {
	Config    *config.Config
	Inventory *appinventory.Service
	Customers *apppartner.CustomerService
	Users     *appidentity.UserService
	Auth      *appidentity.AuthService
	Ledger    *apptrade.Ledger
	Sales     *apptrade.SaleProcessor
	Reports   *appreport.Service

	logger *zap.Logger
	close  func() error
}

// Option configures New
type Option func(*options)

type options struct {
	backend persistence.Backend
	clock   apptrade.Clock
	metrics *telemetry.SaleMetrics
}

// WithBackend uses backend instead of the one selected by the configuration
func WithBackend(backend persistence.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithClock sets the clock used to date transactions
func WithClock(clock apptrade.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithMetrics sets the sale instruments. By default they are registered on
// the global meter provider.
func WithMetrics(m *telemetry.SaleMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New opens the configured storage, creates the services and loads every
// collection. Collections that cannot be loaded start empty.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = telemetry.NewGlobalSaleMetrics()
	}

	closeFn := func() error { return nil }
	backend := o.backend
	if backend == nil {
		var err error
		backend, closeFn, err = OpenBackend(ctx, cfg, logger.Named(log, "storage"))
		if err != nil {
			return nil, err
		}
	}

	codec, err := persistence.CodecFor(cfg.Storage.Format)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	storeLog := logger.Named(log, "store")

	ledger := apptrade.NewLedger(
		persistence.NewEntityStore[trade.Transaction](apptrade.Collection, backend, codec, storeLog),
		o.clock,
		logger.Named(log, "ledger"),
	)
	stock := appinventory.NewService(
		persistence.NewEntityStore[inventory.InventoryItem](appinventory.Collection, backend, codec, storeLog),
		appinventory.WithLogger(logger.Named(log, "inventory")),
		appinventory.WithMetrics(o.metrics),
		appinventory.WithLowStockThreshold(cfg.Inventory.LowStockThreshold),
	)
	customers := apppartner.NewCustomerService(
		persistence.NewEntityStore[partner.Customer](apppartner.Collection, backend, codec, storeLog),
		ledger,
		logger.Named(log, "customers"),
	)
	users := appidentity.NewUserService(
		persistence.NewEntityStore[identity.User](appidentity.Collection, backend, codec, storeLog),
		cfg.Auth.BcryptCost,
		logger.Named(log, "users"),
	)

	ledger.Load(ctx)
	stock.Load(ctx)
	customers.Load(ctx)
	users.Load(ctx)

	app := &App{
		Config:    cfg,
		Inventory: stock,
		Customers: customers,
		Users:     users,
		Auth:      appidentity.NewAuthService(users, logger.Named(log, "auth")),
		Ledger:    ledger,
		Sales: apptrade.NewSaleProcessor(stock, customers, ledger,
			apptrade.WithSaleLogger(logger.Named(log, "sales")),
			apptrade.WithSaleMetrics(o.metrics),
		),
		Reports: appreport.NewService(ledger, cfg.Report.Location(), logger.Named(log, "reports")),
		logger:  log,
		close:   closeFn,
	}

	log.Info("Point of sale ready",
		zap.Int("users", len(users.All())),
		zap.Int("items", len(stock.All())),
		zap.Int("customers", len(customers.All())),
		zap.Int("transactions", ledger.Count()),
	)
	return app, nil
}

// Close releases the storage backend
func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	if err := a.close(); err != nil {
		a.logger.Error("Error closing storage", zap.Error(err))
		return err
	}
	return nil
}
