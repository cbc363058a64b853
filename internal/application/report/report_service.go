package report

import (
	"time"

	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/partner"
	"github.com/erp/pos/internal/domain/report"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionSource gives read access to the recorded sales
type TransactionSource interface {
	All() []trade.Transaction
}

// Service answers report queries over the ledger. Calendar periods are
// evaluated in the service location.
type Service struct {
	ledger TransactionSource
	loc    *time.Location
	logger *zap.Logger
}

// NewService creates a report service. A nil location selects time.Local.
func NewService(ledger TransactionSource, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger: ledger,
		loc:    loc,
		logger: logger,
	}
}

// Location returns the time zone reports are computed in
func (s *Service) Location() *time.Location {
	return s.loc
}

// DailyReport returns the transactions recorded on the calendar day of date,
// from 00:00:00 up to and including 23:59:59.999999999
func (s *Service) DailyReport(date time.Time) []trade.Transaction {
	return report.Filter(s.ledger.All(), func(t time.Time) bool {
		return report.SameDay(t, date, s.loc)
	})
}

// MonthlyReport returns the transactions recorded in month of year
func (s *Service) MonthlyReport(year int, month time.Month) ([]trade.Transaction, error) {
	if month < time.January || month > time.December {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Month must be between 1 and 12, got %d", int(month))
	}
	return report.Filter(s.ledger.All(), func(t time.Time) bool {
		return report.SameMonth(t, year, month, s.loc)
	}), nil
}

// YearlyReport returns the transactions recorded in year
func (s *Service) YearlyReport(year int) []trade.Transaction {
	return report.Filter(s.ledger.All(), func(t time.Time) bool {
		return report.SameYear(t, year, s.loc)
	})
}

// CashierSummary groups txns by cashier username
func (s *Service) CashierSummary(txns []trade.Transaction) map[string]report.CashierTotals {
	return report.SummarizeByCashier(txns)
}

// SortedCashierSummary is CashierSummary ordered by username
func (s *Service) SortedCashierSummary(txns []trade.Transaction) []report.CashierRow {
	return report.SortedCashierRows(report.SummarizeByCashier(txns))
}

// ItemReport projects the bookkeeping fields of item
func (s *Service) ItemReport(item inventory.InventoryItem) report.ItemReport {
	return report.ProjectItem(item)
}

// PeriodSummary gives headline figures for txns
func (s *Service) PeriodSummary(txns []trade.Transaction) report.PeriodSummary {
	return report.Summarize(txns)
}

// LoyaltyRedemption converts one block of loyalty points into a discount.
// subtotal is the cart total before any discount and currentDiscount the
// discount already granted. The customer is not modified; the points are
// taken off when the sale is processed.
func (s *Service) LoyaltyRedemption(customer partner.Customer, subtotal decimal.Decimal, currentDiscount int) (report.Redemption, error) {
	if !customer.CanRedeem(subtotal, currentDiscount) {
		s.logger.Debug("Redemption rejected",
			zap.Int("customer_id", customer.ID),
			zap.Int("loyalty_points", customer.LoyaltyPoints),
			zap.String("subtotal", subtotal.String()),
		)
		return report.Redemption{}, shared.ErrRedemptionRejected
	}
	return report.Redemption{
		Discount:      currentDiscount + partner.RedemptionDiscount,
		LoyaltyPoints: customer.LoyaltyPoints - partner.RedemptionPoints,
	}, nil
}
