package trade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// Collection is the name the ledger is persisted under
const Collection = "transactions"

// Clock returns the current time
type Clock func() time.Time

// Ledger is the append-only list of recorded sales. Transaction IDs are the
// ledger size plus one at the time of recording.
type Ledger struct {
	mu     sync.Mutex
	store  shared.Store[trade.Transaction]
	txns   []trade.Transaction
	clock  Clock
	logger *zap.Logger
}

// NewLedger creates a ledger. A nil clock selects time.Now.
func NewLedger(store shared.Store[trade.Transaction], clock Clock, logger *zap.Logger) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:  store,
		txns:   []trade.Transaction{},
		clock:  clock,
		logger: logger,
	}
}

// Load replaces the in-memory ledger with the persisted one
func (l *Ledger) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txns, err := l.store.Load(ctx)
	persistence.LogLoadWarning(l.logger, Collection, err)
	if txns == nil {
		txns = []trade.Transaction{}
	}
	l.txns = txns
}

// Append mints a transaction from draft and persists the ledger. When the
// save fails the transaction is dropped again and the error returned.
func (l *Ledger) Append(ctx context.Context, draft trade.TransactionDraft) (trade.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn, err := trade.NewTransaction(len(l.txns)+1, l.clock(), draft)
	if err != nil {
		return trade.Transaction{}, err
	}

	next := make([]trade.Transaction, len(l.txns), len(l.txns)+1)
	copy(next, l.txns)
	next = append(next, *txn)

	if err := l.store.Save(ctx, next); err != nil {
		l.logger.Error("Failed to persist ledger",
			zap.Int("transaction_id", txn.TransactionID),
			zap.Error(err),
		)
		return trade.Transaction{}, fmt.Errorf("record transaction %d: %w", txn.TransactionID, err)
	}
	l.txns = next

	l.logger.Info("Transaction recorded",
		zap.Int("transaction_id", txn.TransactionID),
		zap.String("cashier", txn.CashierUsername),
		zap.Int("buyer_id", txn.BuyerID),
		zap.String("total_cost", txn.TotalCost.String()),
	)
	return txn.Clone(), nil
}

// All returns a deep copy of the ledger in recording order
func (l *Ledger) All() []trade.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]trade.Transaction, len(l.txns))
	for i, t := range l.txns {
		out[i] = t.Clone()
	}
	return out
}

// Count returns the number of recorded transactions
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.txns)
}
