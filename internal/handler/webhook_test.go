package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiferro/tienda-pagos/internal/domain"
	"github.com/emiferro/tienda-pagos/internal/signature"
)

type mockSettler struct {
	outcome domain.Outcome
	err     error

	calls      int
	lastPaymentID string
}

func (m *mockSettler) Settle(_ context.Context, paymentID string) (domain.Outcome, error) {
	m.calls++
	m.lastPaymentID = paymentID
	return m.outcome, m.err
}

type mockVerifier struct {
	err   error
	calls int
}

func (m *mockVerifier) Verify(_, _, _ string) error {
	m.calls++
	return m.err
}

func paymentBody(id any) string {
	b, _ := json.Marshal(map[string]any{
		"type": "payment",
		"data": map[string]any{"id": id},
	})
	return string(b)
}

func TestReceivePaymentWebhook(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		verifierErr error
		settlerOut  domain.Outcome
		settlerErr  error
		wantStatus  int
		wantSettled bool
	}{
		{
			name:        "approved payment settles",
			body:        paymentBody("12345"),
			settlerOut:  domain.OutcomeSuccess,
			wantStatus:  http.StatusOK,
			wantSettled: true,
		},
		{
			name:        "numeric payment id accepted",
			body:        paymentBody(12345),
			settlerOut:  domain.OutcomeSuccess,
			wantStatus:  http.StatusOK,
			wantSettled: true,
		},
		{
			name:       "invalid signature rejected",
			body:       paymentBody("12345"),
			verifierErr: signature.ErrMismatch,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing signature header rejected",
			body:       paymentBody("12345"),
			verifierErr: signature.ErrMissingHeader,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "non-payment event acknowledged",
			body:       `{"type":"merchant_order","data":{"id":"mo-1"}}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			body:       "not-json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing payment id",
			body:       `{"type":"payment","data":{}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "downstream error after audit still acknowledged",
			body:        paymentBody("12345"),
			settlerOut:  domain.OutcomeError,
			wantStatus:  http.StatusOK,
			wantSettled: true,
		},
		{
			name:        "payment fetch failure returns 500",
			body:        paymentBody("12345"),
			settlerErr:  errors.New("gateway unavailable"),
			wantStatus:  http.StatusInternalServerError,
			wantSettled: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settler := &mockSettler{outcome: tc.settlerOut, err: tc.settlerErr}
			verifier := &mockVerifier{err: tc.verifierErr}
			h := NewWebhookHandler(settler, verifier)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(tc.body))
			req.Header.Set("x-signature", "ts=1700000000,v1=deadbeef")
			req.Header.Set("x-request-id", "r-1")
			rr := httptest.NewRecorder()

			h.ReceivePaymentWebhook(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantSettled {
				assert.Equal(t, 1, settler.calls)
				assert.Equal(t, "12345", settler.lastPaymentID)
			} else {
				assert.Zero(t, settler.calls, "settler must not run")
			}
		})
	}
}

func TestReceivePaymentWebhook_NonPaymentSkipsVerification(t *testing.T) {
	settler := &mockSettler{}
	verifier := &mockVerifier{err: signature.ErrMismatch}
	h := NewWebhookHandler(settler, verifier)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments",
		strings.NewReader(`{"type":"merchant_order","data":{"id":"mo-1"}}`))
	rr := httptest.NewRecorder()

	h.ReceivePaymentWebhook(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, verifier.calls)
	assert.Zero(t, settler.calls)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp["status"])
}

// End-to-end check of the header plumbing with the real verifier, using the
// provider's documented manifest format.
func TestReceivePaymentWebhook_RealVerifier(t *testing.T) {
	const secret = "s3cr3t"

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "id:%s;request-id:%s;ts:%s;", "12345", "r-1", "1700000000")
	digest := hex.EncodeToString(mac.Sum(nil))

	settler := &mockSettler{outcome: domain.OutcomeSuccess}
	h := NewWebhookHandler(settler, signature.NewVerifier(secret))

	send := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments",
			strings.NewReader(paymentBody("12345")))
		req.Header.Set("x-signature", sig)
		req.Header.Set("x-request-id", "r-1")
		rr := httptest.NewRecorder()
		h.ReceivePaymentWebhook(rr, req)
		return rr
	}

	rr := send("ts=1700000000,v1=" + digest)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, settler.calls)

	mutated := "b" + digest[1:]
	if digest[0] == 'b' {
		mutated = "c" + digest[1:]
	}
	rr = send("ts=1700000000,v1=" + mutated)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, 1, settler.calls, "settler not invoked on rejected signature")
}
