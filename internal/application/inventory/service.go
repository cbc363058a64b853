package inventory

import (
	"context"
	"sync"

	"github.com/erp/pos/internal/application/validation"
	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"github.com/erp/pos/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Collection is the name the inventory is persisted under
const Collection = "inventory"

// DefaultLowStockThreshold is used when no threshold is configured
const DefaultLowStockThreshold = 5

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the instruments updated after each save
func WithMetrics(m *telemetry.SaleMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLowStockThreshold sets the quantity at or below which an item counts
// as low on stock
func WithLowStockThreshold(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.lowStockThreshold = n
		}
	}
}

// Service owns the inventory collection. Every mutation persists the whole
// collection; the in-memory state only changes once the save succeeded.
type Service struct {
	mu                sync.Mutex
	store             shared.Store[inventory.InventoryItem]
	items             []inventory.InventoryItem
	logger            *zap.Logger
	metrics           *telemetry.SaleMetrics
	lowStockThreshold int
}

// NewService creates an inventory service backed by store
func NewService(store shared.Store[inventory.InventoryItem], opts ...Option) *Service {
	s := &Service{
		store:             store,
		items:             []inventory.InventoryItem{},
		logger:            zap.NewNop(),
		lowStockThreshold: DefaultLowStockThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one. Load
// failures are logged and leave the service with an empty inventory.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.store.Load(ctx)
	persistence.LogLoadWarning(s.logger, Collection, err)
	if items == nil {
		items = []inventory.InventoryItem{}
	}
	s.items = items
	s.logger.Debug("Inventory loaded", zap.Int("items", len(items)))
}

// AddItem validates item and appends it
func (s *Service) AddItem(ctx context.Context, item inventory.InventoryItem) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "InventoryService", "AddItem",
		telemetry.WithAttribute(telemetry.SpanAttrItemName, item.Name))
	defer span.End()

	if err := validation.Struct(item); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(item.Name) >= 0 {
		err := shared.NewDomainErrorf(shared.CodeAlreadyExists, "Item %q already exists", item.Name)
		telemetry.RecordError(span, err)
		return err
	}

	next := append(s.snapshot(), item)
	if err := s.commit(ctx, next); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("Item added", zap.String("item", item.Name), zap.Int("quantity", item.Quantity))
	telemetry.SetOK(span)
	return nil
}

// UpdateItem replaces the item with the same name. Nothing happens when no
// such item exists; callers check with FindItem first.
func (s *Service) UpdateItem(ctx context.Context, item inventory.InventoryItem) error {
	if err := validation.Struct(item); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(ctx, item)
}

// RemoveItem removes the item called name
func (s *Service) RemoveItem(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Item %q not found", name)
	}

	next := s.snapshot()
	next = append(next[:idx], next[idx+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("Item removed", zap.String("item", name))
	return nil
}

// FindItem looks an item up by name, ignoring letter case
func (s *Service) FindItem(name string) (inventory.InventoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return inventory.InventoryItem{}, false
	}
	return s.items[idx], true
}

// SellItem books the sale of amount units. Stock is not checked here.
func (s *Service) SellItem(ctx context.Context, name string, amount int) error {
	if amount <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Sale amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Item %q not found", name)
	}
	item := s.items[idx]
	item.SellItem(amount)
	return s.replace(ctx, item)
}

// AddStock books a restock of amount units bought at purchasePrice each
func (s *Service) AddStock(ctx context.Context, name string, amount int, purchasePrice decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Item %q not found", name)
	}
	item := s.items[idx]
	if err := item.AddStock(amount, purchasePrice); err != nil {
		return err
	}
	if err := s.replace(ctx, item); err != nil {
		return err
	}
	s.logger.Info("Stock added",
		zap.String("item", item.Name),
		zap.Int("amount", amount),
		zap.String("purchase_price", purchasePrice.String()),
	)
	return nil
}

// All returns a copy of the inventory in insertion order
func (s *Service) All() []inventory.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Search returns the items whose name contains query, ignoring letter case.
// An empty query matches everything.
func (s *Service) Search(query string) []inventory.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]inventory.InventoryItem, 0)
	for i := range s.items {
		if s.items[i].MatchesQuery(query) {
			out = append(out, s.items[i])
		}
	}
	return out
}

// LowStock returns the items with quantity at or below threshold
func (s *Service) LowStock(threshold int) []inventory.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lowStock(s.items, threshold)
}

// LowStockThreshold returns the configured threshold
func (s *Service) LowStockThreshold() int {
	return s.lowStockThreshold
}

func lowStock(items []inventory.InventoryItem, threshold int) []inventory.InventoryItem {
	out := make([]inventory.InventoryItem, 0)
	for _, item := range items {
		if item.Quantity <= threshold {
			out = append(out, item)
		}
	}
	return out
}

// replace must be called with mu held
func (s *Service) replace(ctx context.Context, item inventory.InventoryItem) error {
	idx := s.indexOf(item.Name)
	if idx < 0 {
		return nil
	}
	next := s.snapshot()
	next[idx] = item
	return s.commit(ctx, next)
}

// commit must be called with mu held
func (s *Service) commit(ctx context.Context, next []inventory.InventoryItem) error {
	if err := s.store.Save(ctx, next); err != nil {
		s.metrics.RecordPersistFailed(ctx, Collection)
		s.logger.Error("Failed to persist inventory", zap.Error(err))
		return err
	}
	s.items = next
	s.metrics.RecordLowStockCount(ctx, len(lowStock(next, s.lowStockThreshold)))
	return nil
}

func (s *Service) indexOf(name string) int {
	key := inventory.NameKey(name)
	for i := range s.items {
		if s.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s *Service) snapshot() []inventory.InventoryItem {
	out := make([]inventory.InventoryItem, len(s.items))
	copy(out, s.items)
	return out
}
