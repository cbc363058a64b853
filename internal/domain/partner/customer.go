package partner

import (
	"strings"

	"github.com/erp/pos/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WalkInID is the buyer ID recorded for sales without a registered customer.
const WalkInID = 0

// Loyalty programme constants. Points are earned at LoyaltyEarnRate of the
// amount paid and redeemed in fixed blocks.
const (
	RedemptionPoints   = 1000
	RedemptionDiscount = 1000
	RedemptionMinTotal = 1000
)

// LoyaltyEarnRate is the share of the amount paid credited as points.
var LoyaltyEarnRate = decimal.NewFromFloat(0.10)

// WalkIn is the sentinel returned when the walk-in ID is looked up.
var WalkIn = Customer{ID: WalkInID, Name: "Walk-in"}

// Customer is a registered buyer collecting loyalty points.
type Customer struct {
	ID            int    `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name" validate:"required,max=100"`
	Surname       string `json:"surname" yaml:"surname" validate:"max=100"`
	Phone         string `json:"phone" yaml:"phone" validate:"max=50"`
	LoyaltyPoints int    `json:"loyalty_points" yaml:"loyalty_points" validate:"gte=0"`
}

// NewCustomer creates a customer with the given ID.
func NewCustomer(id int, name, surname, phone string, loyaltyPoints int) (*Customer, error) {
	if id <= WalkInID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Customer ID must be positive")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Customer name cannot be empty")
	}
	if loyaltyPoints < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Loyalty points cannot be negative")
	}

	return &Customer{
		ID:            id,
		Name:          strings.TrimSpace(name),
		Surname:       strings.TrimSpace(surname),
		Phone:         strings.TrimSpace(phone),
		LoyaltyPoints: loyaltyPoints,
	}, nil
}

// IsWalkIn reports whether the customer is the walk-in sentinel.
func (c *Customer) IsWalkIn() bool {
	return c.ID == WalkInID
}

// FullName returns name and surname separated by a space.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.Surname)
}

// EarnedPoints returns the points earned for paying total, truncated.
func EarnedPoints(total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	return int(total.Mul(LoyaltyEarnRate).Floor().IntPart())
}

// AddLoyaltyPoints credits points.
func (c *Customer) AddLoyaltyPoints(points int) {
	c.LoyaltyPoints += points
}

// SpendLoyaltyPoints debits points. It fails without change when the balance
// would go negative.
func (c *Customer) SpendLoyaltyPoints(points int) error {
	if points < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Points to spend cannot be negative")
	}
	if points > c.LoyaltyPoints {
		return shared.NewDomainErrorf(shared.CodeInvalidInput, "Customer %d has only %d loyalty points", c.ID, c.LoyaltyPoints)
	}
	c.LoyaltyPoints -= points
	return nil
}

// CanRedeem reports whether one redemption block is allowed for a sale with
// the given subtotal (before discount) and discount already granted.
func (c *Customer) CanRedeem(subtotal decimal.Decimal, discount int) bool {
	if c.IsWalkIn() || c.LoyaltyPoints < RedemptionPoints {
		return false
	}
	if subtotal.LessThan(decimal.NewFromInt(RedemptionMinTotal)) {
		return false
	}
	return decimal.NewFromInt(int64(discount + RedemptionDiscount)).LessThanOrEqual(subtotal)
}
