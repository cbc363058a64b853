package report

import (
	"sort"
	"time"

	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// CashierTotals is the per-cashier aggregate of a set of transactions
type CashierTotals struct {
	TransactionCount int             `json:"transaction_count"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
}

// CashierRow is one row of a rendered cashier summary
type CashierRow struct {
	Cashier string `json:"cashier"`
	CashierTotals
}

// ItemReport is a projection of the bookkeeping fields of one item
type ItemReport struct {
	Name         string          `json:"name"`
	AmountBought int             `json:"amount_bought"`
	AmountSold   int             `json:"amount_sold"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	TotalEarned  decimal.Decimal `json:"total_earned"`
	Profit       decimal.Decimal `json:"profit"`
}

// Redemption is the outcome of converting loyalty points into a discount
type Redemption struct {
	Discount      int `json:"discount"`
	LoyaltyPoints int `json:"loyalty_points"`
}

// PeriodSummary gives headline figures for a set of transactions
type PeriodSummary struct {
	TransactionCount int             `json:"transaction_count"`
	ItemsSold        int             `json:"items_sold"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalDiscount    int             `json:"total_discount"`
}

// SummarizeByCashier groups transactions by cashier username.
func SummarizeByCashier(txns []trade.Transaction) map[string]CashierTotals {
	out := make(map[string]CashierTotals)
	for _, t := range txns {
		agg := out[t.CashierUsername]
		agg.TransactionCount++
		agg.TotalEarnings = agg.TotalEarnings.Add(t.TotalCost)
		out[t.CashierUsername] = agg
	}
	return out
}

// SortedCashierRows flattens a cashier summary ordered by username.
func SortedCashierRows(summary map[string]CashierTotals) []CashierRow {
	rows := make([]CashierRow, 0, len(summary))
	for name, totals := range summary {
		rows = append(rows, CashierRow{Cashier: name, CashierTotals: totals})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Cashier < rows[j].Cashier })
	return rows
}

// ProjectItem builds the item report.
func ProjectItem(item inventory.InventoryItem) ItemReport {
	return ItemReport{
		Name:         item.Name,
		AmountBought: item.AmountBought,
		AmountSold:   item.AmountSold,
		TotalSpent:   item.TotalSpent,
		TotalEarned:  item.TotalEarned,
		Profit:       item.Profit(),
	}
}

// Summarize computes headline figures.
func Summarize(txns []trade.Transaction) PeriodSummary {
	s := PeriodSummary{TotalRevenue: decimal.Zero}
	for _, t := range txns {
		s.TransactionCount++
		s.ItemsSold += t.ItemCount()
		s.TotalRevenue = s.TotalRevenue.Add(t.TotalCost)
		s.TotalDiscount += t.Discount
	}
	return s
}

// Filter returns the transactions for which keep reports true, in ledger order.
func Filter(txns []trade.Transaction, keep func(time.Time) bool) []trade.Transaction {
	out := make([]trade.Transaction, 0)
	for _, t := range txns {
		if keep(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth reports whether t falls in year/month in loc.
func SameMonth(t time.Time, year int, month time.Month, loc *time.Location) bool {
	ty, tm, _ := t.In(loc).Date()
	return ty == year && tm == month
}

// SameYear reports whether t falls in year in loc.
func SameYear(t time.Time, year int, loc *time.Location) bool {
	return t.In(loc).Year() == year
}
