package report

import (
	"testing"
	"time"

	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/partner"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger []trade.Transaction

func (f fakeLedger) All() []trade.Transaction {
	out := make([]trade.Transaction, len(f))
	copy(out, f)
	return out
}

func at(id int, cashier string, total int64, date time.Time) trade.Transaction {
	return trade.Transaction{
		TransactionID:   id,
		Date:            date,
		CashierUsername: cashier,
		TotalCost:       decimal.NewFromInt(total),
		Items:           []trade.SaleLine{{ItemName: "Milk", UnitPrice: decimal.NewFromInt(total), Amount: 1}},
	}
}

func ids(txns []trade.Transaction) []int {
	out := make([]int, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.TransactionID)
	}
	return out
}

func TestService_DailyReport_Boundaries(t *testing.T) {
	ledger := fakeLedger{
		at(1, "ann", 1, time.Date(2024, 4, 5, 23, 59, 59, 999999999, time.UTC)),
		at(2, "ann", 1, time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC)),
		at(3, "bob", 1, time.Date(2024, 4, 6, 13, 0, 0, 0, time.UTC)),
		at(4, "ann", 1, time.Date(2024, 4, 6, 23, 59, 59, 999999999, time.UTC)),
		at(5, "bob", 1, time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC)),
	}
	svc := NewService(ledger, time.UTC, nil)

	got := svc.DailyReport(time.Date(2024, 4, 6, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, []int{2, 3, 4}, ids(got))
}

func TestService_DailyReport_Location(t *testing.T) {
	tz := time.FixedZone("UTC-5", -5*60*60)
	ledger := fakeLedger{
		// 02:00 UTC on the 7th is still the 6th at UTC-5
		at(1, "ann", 1, time.Date(2024, 4, 7, 2, 0, 0, 0, time.UTC)),
	}
	svc := NewService(ledger, tz, nil)

	assert.Equal(t, tz, svc.Location())
	assert.Len(t, svc.DailyReport(time.Date(2024, 4, 6, 12, 0, 0, 0, tz)), 1)
	assert.Empty(t, svc.DailyReport(time.Date(2024, 4, 7, 12, 0, 0, 0, tz)))
}

func TestService_MonthlyAndYearly(t *testing.T) {
	ledger := fakeLedger{
		at(1, "ann", 1, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)),
		at(2, "ann", 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		at(3, "bob", 1, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)),
		at(4, "bob", 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
	}
	svc := NewService(ledger, time.UTC, nil)

	jan, err := svc.MonthlyReport(2024, time.January)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, ids(jan))

	assert.Equal(t, []int{2, 3, 4}, ids(svc.YearlyReport(2024)))
	assert.Equal(t, []int{1}, ids(svc.YearlyReport(2023)))
	assert.Empty(t, svc.YearlyReport(2022))

	_, err = svc.MonthlyReport(2024, 13)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.MonthlyReport(2024, 0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestService_CashierSummary(t *testing.T) {
	day := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)
	ledger := fakeLedger{
		at(1, "bob", 10, day),
		at(2, "ann", 5, day),
		at(3, "bob", 7, day),
	}
	svc := NewService(ledger, time.UTC, nil)
	txns := svc.DailyReport(day)

	summary := svc.CashierSummary(txns)
	require.Len(t, summary, 2)
	assert.Equal(t, 2, summary["bob"].TransactionCount)
	assert.Equal(t, "17", summary["bob"].TotalEarnings.String())
	assert.Equal(t, 1, summary["ann"].TransactionCount)

	rows := svc.SortedCashierSummary(txns)
	require.Len(t, rows, 2)
	assert.Equal(t, "ann", rows[0].Cashier)
	assert.Equal(t, "bob", rows[1].Cashier)

	headline := svc.PeriodSummary(txns)
	assert.Equal(t, 3, headline.TransactionCount)
	assert.Equal(t, 3, headline.ItemsSold)
	assert.Equal(t, "22", headline.TotalRevenue.String())
}

func TestService_ItemReport(t *testing.T) {
	svc := NewService(fakeLedger{}, nil, nil)
	item, err := inventory.NewInventoryItem("Milk", "Dairy", decimal.NewFromInt(2), 20, "Farm", decimal.RequireFromString("1.2"), 20)
	require.NoError(t, err)
	item.SellItem(4)

	r := svc.ItemReport(*item)

	assert.Equal(t, 20, r.AmountBought)
	assert.Equal(t, 4, r.AmountSold)
	assert.Equal(t, "24", r.TotalSpent.String())
	assert.Equal(t, "8", r.TotalEarned.String())
	assert.Equal(t, "-16", r.Profit.String())
}

func TestService_LoyaltyRedemption(t *testing.T) {
	svc := NewService(fakeLedger{}, time.UTC, nil)

	tests := []struct {
		name         string
		points       int
		customerID   int
		subtotal     int64
		discount     int
		wantDiscount int
		wantPoints   int
		wantErr      bool
	}{
		{name: "one block", points: 1500, customerID: 1, subtotal: 1200, wantDiscount: 1000, wantPoints: 500},
		{name: "exact minimums", points: 1000, customerID: 1, subtotal: 1000, wantDiscount: 1000, wantPoints: 0},
		{name: "second block", points: 2500, customerID: 1, subtotal: 2500, discount: 1000, wantDiscount: 2000, wantPoints: 1500},
		{name: "too few points", points: 500, customerID: 1, subtotal: 1200, wantErr: true},
		{name: "subtotal too small", points: 1500, customerID: 1, subtotal: 999, wantErr: true},
		{name: "discount would exceed subtotal", points: 2500, customerID: 1, subtotal: 1500, discount: 1000, wantErr: true},
		{name: "walk-in", points: 5000, customerID: partner.WalkInID, subtotal: 5000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customer := partner.Customer{ID: tt.customerID, Name: "Ann", LoyaltyPoints: tt.points}

			got, err := svc.LoyaltyRedemption(customer, decimal.NewFromInt(tt.subtotal), tt.discount)

			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrRedemptionRejected)
				assert.Equal(t, tt.points, customer.LoyaltyPoints)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDiscount, got.Discount)
			assert.Equal(t, tt.wantPoints, got.LoyaltyPoints)
		})
	}
}
