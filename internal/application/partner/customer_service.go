package partner

import (
	"context"
	"sync"

	"github.com/erp/pos/internal/application/validation"
	"github.com/erp/pos/internal/domain/partner"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Collection is the name customers are persisted under
const Collection = "customers"

// CustomerStore persists customers together with the next free ID
type CustomerStore = shared.CounterStore[partner.Customer]

// TransactionSource gives read access to the recorded sales
type TransactionSource interface {
	All() []trade.Transaction
}

// CustomerService owns the customer collection and the customer ID counter
type CustomerService struct {
	mu        sync.Mutex
	store     CustomerStore
	ledger    TransactionSource
	customers []partner.Customer
	nextID    int
	logger    *zap.Logger
}

// NewCustomerService creates a new CustomerService. ledger may be nil when
// purchase history is not needed.
func NewCustomerService(store CustomerStore, ledger TransactionSource, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		store:     store,
		ledger:    ledger,
		customers: []partner.Customer{},
		nextID:    1,
		logger:    logger,
	}
}

// Load replaces the in-memory customers with the persisted ones
func (s *CustomerService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customers, next, err := s.store.LoadWithCounter(ctx)
	persistence.LogLoadWarning(s.logger, Collection, err)
	if customers == nil {
		customers = []partner.Customer{}
	}

	// never hand out an ID that is already taken, even if the counter was lost
	for _, c := range customers {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	if next <= partner.WalkInID {
		next = partner.WalkInID + 1
	}

	s.customers = customers
	s.nextID = next
}

// AddCustomer registers a customer under the next free ID. IDs are never
// reused, also not after the customer was removed.
func (s *CustomerService) AddCustomer(ctx context.Context, input NewCustomerInput) (partner.Customer, error) {
	if err := validation.Struct(input); err != nil {
		return partner.Customer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, err := partner.NewCustomer(s.nextID, input.Name, input.Surname, input.Phone, input.LoyaltyPoints)
	if err != nil {
		return partner.Customer{}, err
	}

	next := append(s.snapshot(), *customer)
	if err := s.commit(ctx, next, s.nextID+1); err != nil {
		return partner.Customer{}, err
	}

	s.logger.Info("Customer added", zap.Int("customer_id", customer.ID))
	return *customer, nil
}

// RemoveCustomer removes the customer with the given ID
func (s *CustomerService) RemoveCustomer(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Customer %d not found", id)
	}

	next := s.snapshot()
	next = append(next[:idx], next[idx+1:]...)
	if err := s.commit(ctx, next, s.nextID); err != nil {
		return err
	}
	s.logger.Info("Customer removed", zap.Int("customer_id", id))
	return nil
}

// UpdateCustomer replaces the customer with the same ID. Nothing happens when
// the ID is unknown.
func (s *CustomerService) UpdateCustomer(ctx context.Context, customer partner.Customer) error {
	if err := validation.Struct(customer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(customer.ID)
	if idx < 0 {
		return nil
	}
	next := s.snapshot()
	next[idx] = customer
	return s.commit(ctx, next, s.nextID)
}

// FindCustomer looks a customer up by ID. The walk-in ID resolves to the
// partner.WalkIn sentinel and reports false.
func (s *CustomerService) FindCustomer(id int) (partner.Customer, bool) {
	if id == partner.WalkInID {
		return partner.WalkIn, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return partner.Customer{}, false
	}
	return s.customers[idx], true
}

// All returns a copy of the customers in registration order
func (s *CustomerService) All() []partner.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// CreditLoyalty adds earned points and removes redeemed points in one save
func (s *CustomerService) CreditLoyalty(ctx context.Context, id, earned, redeemed int) error {
	if earned < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Earned points cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Customer %d not found", id)
	}

	customer := s.customers[idx]
	customer.AddLoyaltyPoints(earned)
	if err := customer.SpendLoyaltyPoints(redeemed); err != nil {
		return err
	}

	next := s.snapshot()
	next[idx] = customer
	if err := s.commit(ctx, next, s.nextID); err != nil {
		return err
	}
	s.logger.Debug("Loyalty points credited",
		zap.Int("customer_id", id),
		zap.Int("earned", earned),
		zap.Int("redeemed", redeemed),
		zap.Int("balance", customer.LoyaltyPoints),
	)
	return nil
}

// GetTransactionsForCustomer returns the sales recorded for the customer, in
// ledger order
func (s *CustomerService) GetTransactionsForCustomer(id int) []trade.Transaction {
	out := make([]trade.Transaction, 0)
	if s.ledger == nil {
		return out
	}
	for _, t := range s.ledger.All() {
		if t.BuyerID == id {
			out = append(out, t)
		}
	}
	return out
}

// TotalSpent sums the amounts paid by the customer
func (s *CustomerService) TotalSpent(id int) decimal.Decimal {
	return sumPaid(s.GetTransactionsForCustomer(id))
}

// History returns the customer and a summary of their purchases
func (s *CustomerService) History(id int) (CustomerHistory, error) {
	customer, ok := s.FindCustomer(id)
	if !ok {
		return CustomerHistory{}, shared.NewDomainErrorf(shared.CodeNotFound, "Customer %d not found", id)
	}
	txns := s.GetTransactionsForCustomer(id)
	return CustomerHistory{
		Customer:     customer,
		Transactions: len(txns),
		TotalSpent:   sumPaid(txns),
	}, nil
}

func sumPaid(txns []trade.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.TotalCost)
	}
	return total
}

// commit must be called with mu held
func (s *CustomerService) commit(ctx context.Context, next []partner.Customer, nextID int) error {
	if err := s.store.SaveWithCounter(ctx, next, nextID); err != nil {
		s.logger.Error("Failed to persist customers", zap.Error(err))
		return err
	}
	s.customers = next
	s.nextID = nextID
	return nil
}

func (s *CustomerService) indexOf(id int) int {
	for i := range s.customers {
		if s.customers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *CustomerService) snapshot() []partner.Customer {
	out := make([]partner.Customer, len(s.customers))
	copy(out, s.customers)
	return out
}
