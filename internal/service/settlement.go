package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emiferro/tienda-pagos/internal/domain"
	"github.com/emiferro/tienda-pagos/internal/logging"
)

// PaymentGateway fetches authoritative payment details from the provider.
type PaymentGateway interface {
	FetchPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
}

type OrderStore interface {
	Upsert(ctx context.Context, order *domain.Order) error
}

type InventoryStore interface {
	ApplyAdjustments(ctx context.Context, adjustments []domain.StockAdjustment) ([]domain.InventoryAdjustment, error)
}

type AuditSink interface {
	Append(ctx context.Context, entry *domain.TransactionAuditEntry) error
}

// RefundHandler is the extension point for refunded payments. The default
// wiring installs none: a refund produces an audit entry only, and stock is
// not restored until the business decides it should be.
type RefundHandler interface {
	HandleRefund(ctx context.Context, payment *domain.PaymentRecord) error
}

type metricsRecorder interface {
	RecordOutcome(outcome string)
	RecordDuration(d time.Duration)
	RecordLowStock()
	RecordStockExhausted()
	RecordSkippedItem()
}

// Settler runs the order settlement pipeline for one verified webhook
// delivery: fetch payment, route on status, materialize the order, adjust
// stock, and always append an audit entry.
type Settler struct {
	gateway   PaymentGateway
	orders    OrderStore
	inventory InventoryStore
	audit     AuditSink
	refunds   RefundHandler
	metrics   metricsRecorder

	lowStockThreshold int
}

func NewSettler(
	gateway PaymentGateway,
	orders OrderStore,
	inventory InventoryStore,
	audit AuditSink,
	metrics metricsRecorder,
	lowStockThreshold int,
) *Settler {
	return &Settler{
		gateway:           gateway,
		orders:            orders,
		inventory:         inventory,
		audit:             audit,
		metrics:           metrics,
		lowStockThreshold: lowStockThreshold,
	}
}

// SetRefundHandler installs the refund extension point.
func (s *Settler) SetRefundHandler(h RefundHandler) {
	s.refunds = h
}

// Settle processes one verified payment notification. A returned error means
// the authoritative payment could not be fetched; nothing has been recorded
// and the provider should retry. Once the payment record is in hand every
// outcome, including downstream write failures, is captured in the audit log
// and reported as a handled outcome.
func (s *Settler) Settle(ctx context.Context, paymentID string) (domain.Outcome, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return "", fmt.Errorf("Settle: fetch payment %s: %w", paymentID, err)
	}

	var (
		outcome domain.Outcome
		procErr error
	)
	switch payment.Status {
	case domain.PaymentStatusApproved:
		if procErr = s.settleApproved(ctx, payment); procErr != nil {
			log.Error("approved payment settlement failed",
				"payment_id", payment.ID,
				"error", procErr,
			)
			outcome = domain.OutcomeError
		} else {
			outcome = domain.OutcomeSuccess
		}
	case domain.PaymentStatusPending:
		outcome = domain.OutcomePending
	case domain.PaymentStatusRejected:
		outcome = domain.OutcomeRejected
	case domain.PaymentStatusRefunded:
		outcome = domain.OutcomeRefunded
		if s.refunds != nil {
			if procErr = s.refunds.HandleRefund(ctx, payment); procErr != nil {
				log.Error("refund handler failed", "payment_id", payment.ID, "error", procErr)
				outcome = domain.OutcomeError
			}
		}
	default:
		log.Warn("payment in unrecognized status",
			"payment_id", payment.ID,
			"status_detail", payment.StatusDetail,
		)
		outcome = domain.OutcomeUnknown
	}

	s.appendAudit(ctx, payment, outcome, procErr)

	s.metrics.RecordOutcome(string(outcome))
	s.metrics.RecordDuration(time.Since(start))

	log.Info("payment settled",
		"payment_id", payment.ID,
		"status", payment.Status,
		"outcome", outcome,
	)
	return outcome, nil
}

func (s *Settler) settleApproved(ctx context.Context, payment *domain.PaymentRecord) error {
	order := domain.NewOrderFromPayment(payment)
	if err := s.orders.Upsert(ctx, order); err != nil {
		return fmt.Errorf("settleApproved: persist order: %w", err)
	}

	if len(payment.LineItems) == 0 {
		return nil
	}

	adjustments := make([]domain.StockAdjustment, 0, len(payment.LineItems))
	for _, item := range payment.LineItems {
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductExternalID: item.ExternalID,
			QuantitySold:      item.Quantity,
		})
	}

	applied, err := s.inventory.ApplyAdjustments(ctx, adjustments)
	if err != nil {
		return fmt.Errorf("settleApproved: adjust stock: %w", err)
	}

	s.emitStockSignals(ctx, payment.ID, adjustments, applied)
	return nil
}

// emitStockSignals reports skipped line items and low/exhausted stock. These
// are observability signals, not control flow: nothing here can fail the
// settlement.
func (s *Settler) emitStockSignals(ctx context.Context, paymentID string, requested []domain.StockAdjustment, applied []domain.InventoryAdjustment) {
	log := logging.FromContext(ctx)

	appliedByID := make(map[string]domain.InventoryAdjustment, len(applied))
	for _, adj := range applied {
		appliedByID[adj.ProductExternalID] = adj
	}

	for _, req := range requested {
		adj, ok := appliedByID[req.ProductExternalID]
		if !ok {
			log.Warn("purchased product not in catalog, line item skipped",
				"payment_id", paymentID,
				"product_id", req.ProductExternalID,
			)
			s.metrics.RecordSkippedItem()
			continue
		}

		switch {
		case adj.StockAfter == 0:
			log.Warn("product stock exhausted",
				"payment_id", paymentID,
				"product_id", adj.ProductExternalID,
			)
			s.metrics.RecordStockExhausted()
		case adj.StockAfter <= s.lowStockThreshold:
			log.Warn("product stock low",
				"payment_id", paymentID,
				"product_id", adj.ProductExternalID,
				"stock", adj.StockAfter,
			)
			s.metrics.RecordLowStock()
		}
	}
}

// appendAudit writes the transaction entry for this delivery. Audit failures
// are logged and swallowed; they never mask the primary webhook outcome.
func (s *Settler) appendAudit(ctx context.Context, payment *domain.PaymentRecord, outcome domain.Outcome, procErr error) {
	log := logging.FromContext(ctx)
	now := time.Now().UTC()

	snapshot, err := json.Marshal(payment)
	if err != nil {
		log.Error("failed to marshal payment snapshot", "payment_id", payment.ID, "error", err)
		snapshot = nil
	}

	entry := &domain.TransactionAuditEntry{
		ID:              uuid.New(),
		PaymentID:       payment.ID,
		Outcome:         outcome,
		PaymentSnapshot: snapshot,
		CreatedAt:       now,
	}
	if procErr != nil {
		entry.ErrorInfo = &domain.ErrorInfo{
			Message:    procErr.Error(),
			OccurredAt: now,
		}
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		log.Error("failed to append audit entry",
			"payment_id", payment.ID,
			"outcome", outcome,
			"error", err,
		)
	}
}
