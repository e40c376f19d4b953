package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/emiferro/tienda-pagos/internal/domain"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one transaction row. The table is append-only; there is no
// update or delete path.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.TransactionAuditEntry) error {
	var errorInfo []byte
	if entry.ErrorInfo != nil {
		var err error
		errorInfo, err = json.Marshal(entry.ErrorInfo)
		if err != nil {
			return fmt.Errorf("Append: marshal error info: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, payment_id, outcome, payment_snapshot, error_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.PaymentID, entry.Outcome,
		[]byte(entry.PaymentSnapshot), errorInfo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (r *AuditRepository) GetByPaymentID(ctx context.Context, paymentID string) ([]domain.TransactionAuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, payment_id, outcome, payment_snapshot, error_info, created_at
		FROM transactions WHERE payment_id = $1 ORDER BY created_at`,
		paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByPaymentID: %w", err)
	}
	defer rows.Close()

	var entries []domain.TransactionAuditEntry
	for rows.Next() {
		var (
			e         domain.TransactionAuditEntry
			snapshot  []byte
			errorInfo []byte
		)
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.Outcome, &snapshot, &errorInfo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("GetByPaymentID: scan: %w", err)
		}
		e.PaymentSnapshot = snapshot
		if len(errorInfo) > 0 {
			e.ErrorInfo = &domain.ErrorInfo{}
			if err := json.Unmarshal(errorInfo, e.ErrorInfo); err != nil {
				return nil, fmt.Errorf("GetByPaymentID: unmarshal error info: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByPaymentID: rows: %w", err)
	}
	return entries, nil
}
