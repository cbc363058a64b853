package trade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/pos/internal/domain/identity"
	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/partner"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/erp/pos/internal/infrastructure/logger"
	"github.com/erp/pos/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stock is the part of the inventory service a sale needs
type Stock interface {
	FindItem(name string) (inventory.InventoryItem, bool)
	SellItem(ctx context.Context, name string, amount int) error
}

// Customers is the part of the customer service a sale needs
type Customers interface {
	FindCustomer(id int) (partner.Customer, bool)
	CreditLoyalty(ctx context.Context, id, earned, redeemed int) error
}

// Recorder records transactions
type Recorder interface {
	Append(ctx context.Context, draft trade.TransactionDraft) (trade.Transaction, error)
}

// SaleRequest is a checked-out cart
type SaleRequest struct {
	Cart    []trade.SaleItem
	Cashier identity.User
	// BuyerID is partner.WalkInID for anonymous sales
	BuyerID int
	// TotalCost is the amount paid, after Discount
	TotalCost decimal.Decimal
	// Discount is the loyalty discount granted, in whole redemption blocks
	Discount int
}

// SaleProcessorOption configures a SaleProcessor
type SaleProcessorOption func(*SaleProcessor)

// WithSaleLogger sets the processor logger
func WithSaleLogger(l *zap.Logger) SaleProcessorOption {
	return func(p *SaleProcessor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSaleMetrics sets the sale instruments
func WithSaleMetrics(m *telemetry.SaleMetrics) SaleProcessorOption {
	return func(p *SaleProcessor) {
		p.metrics = m
	}
}

// SaleProcessor turns carts into recorded sales. Sales are processed one
// at a time so that no two carts are checked against the same stock or
// loyalty balance.
type SaleProcessor struct {
	mu        sync.Mutex
	stock     Stock
	customers Customers
	ledger    Recorder
	logger    *zap.Logger
	metrics   *telemetry.SaleMetrics
}

// NewSaleProcessor creates a new SaleProcessor
func NewSaleProcessor(stock Stock, customers Customers, ledger Recorder, opts ...SaleProcessorOption) *SaleProcessor {
	p := &SaleProcessor{
		stock:     stock,
		customers: customers,
		ledger:    ledger,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessSale validates the cart against current stock and the buyer's
// loyalty balance, records the transaction, takes the sold units out of
// stock and settles loyalty points.
//
// Nothing is changed when validation fails. Recording, stock and loyalty
// updates are saved one after another; if a later step fails the recorded
// transaction is returned together with the error.
func (p *SaleProcessor) ProcessSale(ctx context.Context, req SaleRequest) (trade.Transaction, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "SaleProcessor", "ProcessSale",
		telemetry.WithAttribute(telemetry.SpanAttrCashier, req.Cashier.Username),
		telemetry.WithAttribute(telemetry.SpanAttrBuyerID, req.BuyerID),
		telemetry.WithAttribute(telemetry.SpanAttrLineCount, len(req.Cart)),
		telemetry.WithAttribute(telemetry.SpanAttrDiscount, req.Discount),
	)
	defer span.End()
	log := logger.WithTraceContext(ctx, p.logger.With(zap.String("cashier", req.Cashier.Username)))

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validate(req); err != nil {
		p.metrics.RecordSaleRejected(ctx, reason(err))
		telemetry.RecordError(span, err)
		log.Warn("Sale rejected", zap.Error(err))
		return trade.Transaction{}, err
	}

	draft := trade.NewTransactionDraft(req.Cart, req.Cashier, req.BuyerID, req.TotalCost, req.Discount)
	txn, err := p.ledger.Append(ctx, draft)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Failed to record sale", zap.Error(err))
		return trade.Transaction{}, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrTransactionID, txn.TransactionID)
	log = log.With(zap.Int("transaction_id", txn.TransactionID))

	for _, line := range req.Cart {
		if err := p.stock.SellItem(ctx, line.Item.Name, line.Amount); err != nil {
			err = fmt.Errorf("transaction %d: update stock of %q: %w", txn.TransactionID, line.Item.Name, err)
			telemetry.RecordError(span, err)
			log.Error("Sale recorded but stock not updated", zap.Error(err))
			return txn, err
		}
	}

	if req.BuyerID != partner.WalkInID {
		earned := partner.EarnedPoints(req.TotalCost)
		if err := p.customers.CreditLoyalty(ctx, req.BuyerID, earned, req.Discount); err != nil {
			err = fmt.Errorf("transaction %d: settle loyalty points: %w", txn.TransactionID, err)
			telemetry.RecordError(span, err)
			log.Error("Sale recorded but loyalty points not updated", zap.Error(err))
			return txn, err
		}
		telemetry.AddEvent(span, "loyalty.settled", "earned", earned, "redeemed", req.Discount)
	}

	p.metrics.RecordSaleCompleted(ctx, req.Cashier.Username, req.BuyerID == partner.WalkInID, req.TotalCost, time.Since(start))
	telemetry.SetOK(span)
	log.Info("Sale completed",
		zap.Int("buyer_id", req.BuyerID),
		zap.String("total_cost", req.TotalCost.String()),
		zap.Int("discount", req.Discount),
	)
	return txn, nil
}

func (p *SaleProcessor) validate(req SaleRequest) error {
	if len(req.Cart) == 0 {
		return shared.ErrEmptyCart
	}
	if req.TotalCost.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Total cost cannot be negative")
	}

	// duplicate lines of the same item draw on the same stock
	requested := make(map[string]int, len(req.Cart))
	for _, line := range req.Cart {
		if line.Amount <= 0 {
			return shared.NewDomainErrorf(shared.CodeInvalidInput, "Amount of %q must be positive", line.Item.Name)
		}
		current, ok := p.stock.FindItem(line.Item.Name)
		if !ok {
			return shared.NewDomainErrorf(shared.CodeNotFound, "Item %q not found", line.Item.Name)
		}
		key := current.Key()
		requested[key] += line.Amount
		if requested[key] > current.Quantity {
			return shared.NewDomainErrorf(shared.CodeInsufficientStock,
				"Not enough %q in stock: requested %d, available %d", current.Name, requested[key], current.Quantity)
		}
	}

	if req.Discount < 0 || req.Discount%partner.RedemptionDiscount != 0 {
		return shared.NewDomainErrorf(shared.CodeInvalidInput,
			"Discount must be a non-negative multiple of %d", partner.RedemptionDiscount)
	}
	if req.BuyerID == partner.WalkInID {
		if req.Discount > 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Walk-in sales cannot redeem loyalty points")
		}
		return nil
	}

	buyer, ok := p.customers.FindCustomer(req.BuyerID)
	if !ok {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Customer %d not found", req.BuyerID)
	}
	if buyer.LoyaltyPoints < req.Discount {
		return shared.NewDomainErrorf(shared.CodeInvalidInput,
			"Customer %d has only %d loyalty points", buyer.ID, buyer.LoyaltyPoints)
	}
	return nil
}

func reason(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "UNKNOWN"
}
