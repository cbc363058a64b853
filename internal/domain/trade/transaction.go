package trade

import (
	"time"

	"github.com/erp/pos/internal/domain/identity"
	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem is one line of an in-progress cart.
type SaleItem struct {
	Item   inventory.InventoryItem
	Amount int
}

// Subtotal returns price * amount for the line
func (s SaleItem) Subtotal() decimal.Decimal {
	return s.Item.Price.Mul(decimal.NewFromInt(int64(s.Amount)))
}

// CartTotal sums the line subtotals of a cart, before any discount.
func CartTotal(cart []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range cart {
		total = total.Add(line.Subtotal())
	}
	return total
}

// SaleLine is the frozen copy of a cart line kept in a Transaction.
type SaleLine struct {
	ItemName  string          `json:"item_name" yaml:"item_name"`
	Category  string          `json:"category" yaml:"category"`
	UnitPrice decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	Amount    int             `json:"amount" yaml:"amount"`
}

// Subtotal returns UnitPrice * Amount
func (l SaleLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Amount)))
}

// TransactionDraft carries everything needed to record a sale except the
// ledger-assigned ID and timestamp.
type TransactionDraft struct {
	CashierID       uuid.UUID
	CashierUsername string
	BuyerID         int
	TotalCost       decimal.Decimal
	Discount        int
	Items           []SaleLine
}

// NewTransactionDraft snapshots cashier and cart by value so that later edits
// to users or inventory never alter recorded sales.
func NewTransactionDraft(cart []SaleItem, cashier identity.User, buyerID int, totalCost decimal.Decimal, discount int) TransactionDraft {
	lines := make([]SaleLine, 0, len(cart))
	for _, c := range cart {
		lines = append(lines, SaleLine{
			ItemName:  c.Item.Name,
			Category:  c.Item.Category,
			UnitPrice: c.Item.Price,
			Amount:    c.Amount,
		})
	}
	return TransactionDraft{
		CashierID:       cashier.ID,
		CashierUsername: cashier.Username,
		BuyerID:         buyerID,
		TotalCost:       totalCost,
		Discount:        discount,
		Items:           lines,
	}
}

// Transaction is a completed sale. It is immutable once recorded.
type Transaction struct {
	TransactionID   int             `json:"transaction_id" yaml:"transaction_id"`
	Date            time.Time       `json:"date" yaml:"date"`
	CashierID       uuid.UUID       `json:"cashier_id" yaml:"cashier_id"`
	CashierUsername string          `json:"cashier_username" yaml:"cashier_username"`
	BuyerID         int             `json:"buyer_id" yaml:"buyer_id"`
	TotalCost       decimal.Decimal `json:"total_cost" yaml:"total_cost"`
	Discount        int             `json:"discount" yaml:"discount"`
	Items           []SaleLine      `json:"items" yaml:"items"`
}

// NewTransaction mints a transaction from a draft.
func NewTransaction(id int, date time.Time, draft TransactionDraft) (*Transaction, error) {
	if id <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transaction ID must be positive")
	}
	if len(draft.Items) == 0 {
		return nil, shared.ErrEmptyCart
	}
	items := make([]SaleLine, len(draft.Items))
	copy(items, draft.Items)

	return &Transaction{
		TransactionID:   id,
		Date:            date,
		CashierID:       draft.CashierID,
		CashierUsername: draft.CashierUsername,
		BuyerID:         draft.BuyerID,
		TotalCost:       draft.TotalCost,
		Discount:        draft.Discount,
		Items:           items,
	}, nil
}

// IsWalkIn reports whether the sale had no registered customer
func (t *Transaction) IsWalkIn() bool {
	return t.BuyerID == 0
}

// ItemCount returns the number of units sold
func (t *Transaction) ItemCount() int {
	n := 0
	for _, l := range t.Items {
		n += l.Amount
	}
	return n
}

// Clone returns a deep copy
func (t Transaction) Clone() Transaction {
	items := make([]SaleLine, len(t.Items))
	copy(items, t.Items)
	t.Items = items
	return t
}
