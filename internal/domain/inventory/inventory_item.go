package inventory

import (
	"strings"

	"github.com/erp/pos/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// InventoryItem is a stocked product. It is identified by its name; two names
// that differ only by letter case refer to the same item.
//
// Quantity is intended to equal AmountBought - AmountSold but is not actively
// reconciled. TotalSpent and TotalEarned are running sums that only grow
// through AddStock and SellItem.
type InventoryItem struct {
	Name          string          `json:"name" yaml:"name" validate:"required,max=200"`
	Category      string          `json:"category" yaml:"category" validate:"max=100"`
	Price         decimal.Decimal `json:"price" yaml:"price" validate:"gte=0"`
	Quantity      int             `json:"quantity" yaml:"quantity" validate:"gte=0"`
	Supplier      string          `json:"supplier" yaml:"supplier" validate:"max=200"`
	PurchasePrice decimal.Decimal `json:"purchase_price" yaml:"purchase_price" validate:"gte=0"`
	AmountBought  int             `json:"amount_bought" yaml:"amount_bought" validate:"gte=0"`
	AmountSold    int             `json:"amount_sold" yaml:"amount_sold" validate:"gte=0"`
	TotalSpent    decimal.Decimal `json:"total_spent" yaml:"total_spent"`
	TotalEarned   decimal.Decimal `json:"total_earned" yaml:"total_earned"`
}

// NewInventoryItem creates an item that has just been bought in. The initial
// purchase is booked into TotalSpent; nothing has been sold yet.
func NewInventoryItem(name, category string, price decimal.Decimal, quantity int, supplier string, purchasePrice decimal.Decimal, amountBought int) (*InventoryItem, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Price cannot be negative")
	}
	if purchasePrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase price cannot be negative")
	}
	if quantity < 0 || amountBought < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantities cannot be negative")
	}

	return &InventoryItem{
		Name:          strings.TrimSpace(name),
		Category:      category,
		Price:         price,
		Quantity:      quantity,
		Supplier:      supplier,
		PurchasePrice: purchasePrice,
		AmountBought:  amountBought,
		AmountSold:    0,
		TotalSpent:    purchasePrice.Mul(decimal.NewFromInt(int64(amountBought))),
		TotalEarned:   decimal.Zero,
	}, nil
}

// Key returns the lookup key of the item.
func (i *InventoryItem) Key() string {
	return NameKey(i.Name)
}

// NameKey folds a name so that lookups ignore letter case.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// SellItem books a sale of amount units at the current price.
// It does not check stock; callers must do that first.
func (i *InventoryItem) SellItem(amount int) {
	i.Quantity -= amount
	i.AmountSold += amount
	i.TotalEarned = i.TotalEarned.Add(i.Price.Mul(decimal.NewFromInt(int64(amount))))
}

// AddStock books a restock of amount units bought at purchasePrice each.
// The new purchase price replaces the previous one; it is not averaged.
func (i *InventoryItem) AddStock(amount int, purchasePrice decimal.Decimal) error {
	if amount <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Restock amount must be positive")
	}
	if purchasePrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Purchase price cannot be negative")
	}

	i.Quantity += amount
	i.AmountBought += amount
	i.PurchasePrice = purchasePrice
	i.TotalSpent = i.TotalSpent.Add(purchasePrice.Mul(decimal.NewFromInt(int64(amount))))
	return nil
}

// HasStock reports whether amount units can be sold.
func (i *InventoryItem) HasStock(amount int) bool {
	return amount > 0 && amount <= i.Quantity
}

// Profit returns TotalEarned - TotalSpent.
func (i *InventoryItem) Profit() decimal.Decimal {
	return i.TotalEarned.Sub(i.TotalSpent)
}

// MatchesQuery reports whether the item name contains query, ignoring case.
func (i *InventoryItem) MatchesQuery(query string) bool {
	return strings.Contains(i.Key(), NameKey(query))
}
