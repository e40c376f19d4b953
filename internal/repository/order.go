package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/emiferro/tienda-pagos/internal/domain"
)

const orderColumns = `id, payment_id, status, total, currency, payment_method,
	items, customer, payment_details, created_at, approved_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Upsert persists an order keyed by its deterministic ID. A conflicting
// insert is a no-op, so redelivered webhooks cannot create duplicates.
func (r *OrderRepository) Upsert(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("Upsert: marshal items: %w", err)
	}

	var customer []byte
	if order.Customer != nil {
		customer, err = json.Marshal(order.Customer)
		if err != nil {
			return fmt.Errorf("Upsert: marshal customer: %w", err)
		}
	}

	details, err := json.Marshal(order.PaymentDetails)
	if err != nil {
		return fmt.Errorf("Upsert: marshal payment details: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (
			id, payment_id, status, total, currency, payment_method,
			items, customer, payment_details, created_at, approved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		order.ID, order.PaymentID, order.Status, order.Total, order.Currency,
		nullIfEmpty(order.PaymentMethod), items, customer, details,
		order.CreatedAt, order.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	)

	var (
		o             domain.Order
		paymentMethod sql.NullString
		items         []byte
		customer      []byte
		details       []byte
	)
	err := row.Scan(
		&o.ID, &o.PaymentID, &o.Status, &o.Total, &o.Currency, &paymentMethod,
		&items, &customer, &details, &o.CreatedAt, &o.ApprovedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}

	if paymentMethod.Valid {
		o.PaymentMethod = paymentMethod.String
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("GetByID: unmarshal items: %w", err)
	}
	if len(customer) > 0 {
		o.Customer = &domain.Payer{}
		if err := json.Unmarshal(customer, o.Customer); err != nil {
			return nil, fmt.Errorf("GetByID: unmarshal customer: %w", err)
		}
	}
	if err := json.Unmarshal(details, &o.PaymentDetails); err != nil {
		return nil, fmt.Errorf("GetByID: unmarshal payment details: %w", err)
	}

	return &o, nil
}

func (r *OrderRepository) CountByPaymentID(ctx context.Context, paymentID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM orders WHERE payment_id = $1`, paymentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountByPaymentID: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
