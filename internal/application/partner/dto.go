package partner

import (
	"github.com/erp/pos/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// NewCustomerInput represents a request to register a customer
type NewCustomerInput struct {
	Name          string `json:"name" validate:"required,min=1,max=100"`
	Surname       string `json:"surname" validate:"max=100"`
	Phone         string `json:"phone" validate:"max=50"`
	LoyaltyPoints int    `json:"loyalty_points" validate:"gte=0"`
}

// CustomerHistory is a customer together with the sales recorded for them
type CustomerHistory struct {
	Customer     partner.Customer `json:"customer"`
	Transactions int              `json:"transactions"`
	TotalSpent   decimal.Decimal  `json:"total_spent"`
}
