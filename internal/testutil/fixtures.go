package testutil

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
)

func SeedProduct(t *testing.T, db *sql.DB, externalID, name string, price decimal.Decimal, stock int) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO products (external_id, name, price, stock) VALUES ($1, $2, $3, $4)`,
		externalID, name, price, stock,
	)
	if err != nil {
		t.Fatalf("seed product %s: %v", externalID, err)
	}
}

func GetProductStock(t *testing.T, db *sql.DB, externalID string) int {
	t.Helper()
	var stock int
	err := db.QueryRow(`SELECT stock FROM products WHERE external_id = $1`, externalID).Scan(&stock)
	if err != nil {
		t.Fatalf("get stock for %s: %v", externalID, err)
	}
	return stock
}

func CountOrders(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

func CountTransactions(t *testing.T, db *sql.DB, paymentID string) int {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT count(*) FROM transactions WHERE payment_id = $1`, paymentID).Scan(&n)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", paymentID, err)
	}
	return n
}
