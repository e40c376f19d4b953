package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiferro/tienda-pagos/internal/domain"
	"github.com/emiferro/tienda-pagos/internal/testutil"
)

func testOrder(paymentID string) *domain.Order {
	return &domain.Order{
		ID:            domain.OrderID(paymentID),
		PaymentID:     paymentID,
		Status:        domain.OrderStatusCompleted,
		Total:         decimal.NewFromInt(200),
		Currency:      "ARS",
		PaymentMethod: "visa",
		Items: []domain.OrderItem{
			{
				ExternalID: "sku1",
				Title:      "Gorro tejido",
				Quantity:   2,
				UnitPrice:  decimal.NewFromInt(100),
				Subtotal:   decimal.NewFromInt(200),
			},
		},
		Customer: &domain.Payer{Email: "ana@example.com", Name: "Ana García"},
		PaymentDetails: domain.PaymentDetails{
			PaymentID: paymentID,
			Status:    "approved",
			Method:    "visa",
			Amount:    decimal.NewFromInt(200),
			Currency:  "ARS",
		},
		CreatedAt: time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestOrderRepository_UpsertIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)

	order := testOrder("p1")
	require.NoError(t, repo.Upsert(ctx, order))

	// Redelivery: same payment, same deterministic ID.
	require.NoError(t, repo.Upsert(ctx, testOrder("p1")))

	assert.Equal(t, 1, testutil.CountOrders(t, db))

	got, err := repo.GetByID(ctx, "order_p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PaymentID)
	assert.Equal(t, domain.OrderStatusCompleted, got.Status)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(200)))
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Subtotal.Equal(decimal.NewFromInt(200)))
	require.NotNil(t, got.Customer)
	assert.Equal(t, "ana@example.com", got.Customer.Email)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderRepository(db)

	_, err := repo.GetByID(context.Background(), "order_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepository_ApplyAdjustments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewProductRepository(db)

	testutil.SeedProduct(t, db, "sku1", "Gorro tejido", decimal.NewFromInt(100), 5)
	testutil.SeedProduct(t, db, "sku2", "Bufanda", decimal.NewFromInt(50), 3)

	applied, err := repo.ApplyAdjustments(ctx, []domain.StockAdjustment{
		{ProductExternalID: "sku1", QuantitySold: 2},
		{ProductExternalID: "sku2", QuantitySold: 10},
		{ProductExternalID: "sku-missing", QuantitySold: 1},
	})
	require.NoError(t, err)

	require.Len(t, applied, 2, "missing product skipped, not fatal")

	assert.Equal(t, domain.InventoryAdjustment{
		ProductExternalID: "sku1", QuantitySold: 2, StockBefore: 5, StockAfter: 3,
	}, applied[0])
	assert.Equal(t, domain.InventoryAdjustment{
		ProductExternalID: "sku2", QuantitySold: 10, StockBefore: 3, StockAfter: 0,
	}, applied[1], "overselling floors at zero, never negative")

	assert.Equal(t, 3, testutil.GetProductStock(t, db, "sku1"))
	assert.Equal(t, 0, testutil.GetProductStock(t, db, "sku2"))
}

func TestProductRepository_RepeatedAdjustmentsKeepFloor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewProductRepository(db)

	testutil.SeedProduct(t, db, "sku1", "Gorro tejido", decimal.NewFromInt(100), 4)

	for range 3 {
		_, err := repo.ApplyAdjustments(ctx, []domain.StockAdjustment{
			{ProductExternalID: "sku1", QuantitySold: 2},
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 0, testutil.GetProductStock(t, db, "sku1"))
}

func TestAuditRepository_AppendAndRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewAuditRepository(db)

	snapshot, _ := json.Marshal(map[string]string{"id": "p1", "status": "approved"})
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Append(ctx, &domain.TransactionAuditEntry{
		ID:              uuid.New(),
		PaymentID:       "p1",
		Outcome:         domain.OutcomeSuccess,
		PaymentSnapshot: snapshot,
		CreatedAt:       now,
	}))
	require.NoError(t, repo.Append(ctx, &domain.TransactionAuditEntry{
		ID:        uuid.New(),
		PaymentID: "p1",
		Outcome:   domain.OutcomeError,
		ErrorInfo: &domain.ErrorInfo{Message: "stock write failed", OccurredAt: now},
		CreatedAt: now.Add(time.Second),
	}))

	entries, err := repo.GetByPaymentID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, domain.OutcomeSuccess, entries[0].Outcome)
	assert.JSONEq(t, string(snapshot), string(entries[0].PaymentSnapshot))
	assert.Nil(t, entries[0].ErrorInfo)

	assert.Equal(t, domain.OutcomeError, entries[1].Outcome)
	require.NotNil(t, entries[1].ErrorInfo)
	assert.Equal(t, "stock write failed", entries[1].ErrorInfo.Message)
}
