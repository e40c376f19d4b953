package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emiferro/tienda-pagos/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// In the CTE the outer SELECT still sees the pre-update snapshot of products,
// which is what gives us stock_before without a separate read. The GREATEST
// floor is enforced by the database inside a single statement, so concurrent
// settlements for the same product serialize on the row lock instead of
// racing a read-modify-write.
const adjustStockQuery = `
	WITH updated AS (
		UPDATE products
		SET stock = GREATEST(stock - $2, 0), updated_at = now()
		WHERE external_id = $1
		RETURNING stock
	)
	SELECT p.stock, u.stock FROM products p, updated u WHERE p.external_id = $1`

// ApplyAdjustments decrements stock for every line item of one payment inside
// a single transaction: the batch commits or fails as a unit. Products not in
// the catalog are left out of the result rather than failing the batch.
func (r *ProductRepository) ApplyAdjustments(ctx context.Context, adjustments []domain.StockAdjustment) ([]domain.InventoryAdjustment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ApplyAdjustments: begin tx: %w", err)
	}
	defer tx.Rollback()

	applied := make([]domain.InventoryAdjustment, 0, len(adjustments))
	for _, adj := range adjustments {
		var before, after int
		err := tx.QueryRowContext(ctx, adjustStockQuery, adj.ProductExternalID, adj.QuantitySold).
			Scan(&before, &after)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ApplyAdjustments: product %s: %w", adj.ProductExternalID, err)
		}

		applied = append(applied, domain.InventoryAdjustment{
			ProductExternalID: adj.ProductExternalID,
			QuantitySold:      adj.QuantitySold,
			StockBefore:       before,
			StockAfter:        after,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ApplyAdjustments: commit: %w", err)
	}
	return applied, nil
}

func (r *ProductRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT external_id, name, price, stock, created_at, updated_at
		FROM products WHERE external_id = $1`, externalID,
	)

	var p domain.Product
	err := row.Scan(&p.ExternalID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByExternalID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByExternalID: %w", err)
	}
	return &p, nil
}
