package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/emiferro/tienda-pagos/internal/domain"
	"github.com/emiferro/tienda-pagos/internal/logging"
)

type settler interface {
	Settle(ctx context.Context, paymentID string) (domain.Outcome, error)
}

type signatureVerifier interface {
	Verify(header, requestID, paymentID string) error
}

type WebhookHandler struct {
	settler  settler
	verifier signatureVerifier
}

func NewWebhookHandler(settler settler, verifier signatureVerifier) *WebhookHandler {
	return &WebhookHandler{settler: settler, verifier: verifier}
}

// flexibleID accepts the payment ID as either a JSON number or a string; the
// provider is not consistent across notification versions.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexibleID(n.String())
		return nil
	}
	return fmt.Errorf("id is neither string nor number")
}

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// ReceivePaymentWebhook handles one provider notification: verify the
// signature, then run the settlement pipeline. The handler always produces a
// terminal response; business failures after the authoritative fetch are
// audited and acknowledged with 200 so the provider does not redeliver.
func (h *WebhookHandler) ReceivePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if payload.Type != "payment" {
		log.Info("non-payment event acknowledged", "event_type", payload.Type)
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	paymentID := string(payload.Data.ID)
	if paymentID == "" {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	sigHeader := r.Header.Get("x-signature")
	requestID := r.Header.Get("x-request-id")
	if err := h.verifier.Verify(sigHeader, requestID, paymentID); err != nil {
		log.Warn("webhook signature verification failed",
			"payment_id", paymentID,
			"request_id", requestID,
			"error", err,
		)
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	outcome, err := h.settler.Settle(r.Context(), paymentID)
	if err != nil {
		log.Error("settlement failed before payment fetch completed",
			"payment_id", paymentID,
			"error", err,
		)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
