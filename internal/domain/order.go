package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// Orders are created in their terminal state; the settlement pipeline never
// mutates an order after it has been written.
const OrderStatusCompleted OrderStatus = "completed"

type OrderItem struct {
	ExternalID string          `json:"external_id"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// PaymentDetails is a snapshot of the provider payment kept on the order for
// audit and debugging.
type PaymentDetails struct {
	PaymentID    string          `json:"payment_id"`
	Status       string          `json:"status"`
	StatusDetail string          `json:"status_detail,omitempty"`
	Method       string          `json:"method,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type Order struct {
	ID             string
	PaymentID      string
	Status         OrderStatus
	Total          decimal.Decimal
	Currency       string
	PaymentMethod  string
	Items          []OrderItem
	Customer       *Payer
	PaymentDetails PaymentDetails
	CreatedAt      time.Time
	ApprovedAt     *time.Time
}

// OrderID derives the order identifier from the payment ID. Redelivery of the
// same webhook produces the same ID, which is what makes order creation
// idempotent.
func OrderID(paymentID string) string {
	return "order_" + paymentID
}

// NewOrderFromPayment materializes an order from an approved payment record.
// Subtotals are computed here, never trusted from provider input.
func NewOrderFromPayment(p *PaymentRecord) *Order {
	items := make([]OrderItem, 0, len(p.LineItems))
	for _, li := range p.LineItems {
		items = append(items, OrderItem{
			ExternalID: li.ExternalID,
			Title:      li.Title,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
			Subtotal:   li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))),
		})
	}

	order := &Order{
		ID:            OrderID(p.ID),
		PaymentID:     p.ID,
		Status:        OrderStatusCompleted,
		Total:         p.Amount,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethodID,
		Items:         items,
		PaymentDetails: PaymentDetails{
			PaymentID:    p.ID,
			Status:       string(p.Status),
			StatusDetail: p.StatusDetail,
			Method:       p.PaymentMethodID,
			Amount:       p.Amount,
			Currency:     p.Currency,
		},
		CreatedAt:  p.CreatedAt,
		ApprovedAt: p.ApprovedAt,
	}

	if c := customerSnapshot(p.Payer); c != nil {
		order.Customer = c
	}
	return order
}

func customerSnapshot(payer Payer) *Payer {
	c := Payer{
		Email: strings.TrimSpace(payer.Email),
		Name:  strings.TrimSpace(payer.Name),
		Phone: strings.TrimSpace(payer.Phone),
	}
	if c.Email == "" && c.Name == "" && c.Phone == "" {
		return nil
	}
	return &c
}
