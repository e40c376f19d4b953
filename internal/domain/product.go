package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ExternalID string
	Name       string
	Price      decimal.Decimal
	Stock      int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StockAdjustment is a requested decrement for one purchased line item.
type StockAdjustment struct {
	ProductExternalID string
	QuantitySold      int
}

// InventoryAdjustment records an applied decrement. StockAfter is floored at
// zero; stock is never written negative.
type InventoryAdjustment struct {
	ProductExternalID string
	QuantitySold      int
	StockBefore       int
	StockAfter        int
}
