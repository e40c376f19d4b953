// Package gateway is the HTTP client for the payment provider. The settlement
// pipeline depends only on its success/failure contract, not on the provider's
// wire format.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiferro/tienda-pagos/internal/domain"
	"github.com/emiferro/tienda-pagos/internal/logging"
)

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// paymentResponse mirrors the provider's payment resource. Quantities and
// unit prices arrive as numbers or quoted numbers depending on the checkout
// flow; decimal.Decimal accepts both.
type paymentResponse struct {
	ID              json.Number     `json:"id"`
	Status          string          `json:"status"`
	StatusDetail    string          `json:"status_detail"`
	Amount          decimal.Decimal `json:"transaction_amount"`
	CurrencyID      string          `json:"currency_id"`
	PaymentMethodID string          `json:"payment_method_id"`
	DateCreated     time.Time       `json:"date_created"`
	DateApproved    *time.Time      `json:"date_approved"`
	Payer           struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     struct {
			Number string `json:"number"`
		} `json:"phone"`
	} `json:"payer"`
	AdditionalInfo struct {
		Items []struct {
			ID        string          `json:"id"`
			Title     string          `json:"title"`
			Quantity  decimal.Decimal `json:"quantity"`
			UnitPrice decimal.Decimal `json:"unit_price"`
		} `json:"items"`
	} `json:"additional_info"`
}

// FetchPayment retrieves the authoritative payment record by ID. This is the
// trust boundary: everything downstream operates on this record, never on
// the webhook body.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("FetchPayment: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchPayment: send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("payment detail fetched",
		"payment_id", paymentID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("FetchPayment: payment %s: %w", paymentID, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("FetchPayment: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("FetchPayment: decode: %w", err)
	}

	return toPaymentRecord(&pr), nil
}

func toPaymentRecord(pr *paymentResponse) *domain.PaymentRecord {
	record := &domain.PaymentRecord{
		ID:              pr.ID.String(),
		Status:          domain.ParsePaymentStatus(pr.Status),
		StatusDetail:    pr.StatusDetail,
		Amount:          pr.Amount,
		Currency:        pr.CurrencyID,
		PaymentMethodID: pr.PaymentMethodID,
		Payer: domain.Payer{
			Email: pr.Payer.Email,
			Name:  strings.TrimSpace(pr.Payer.FirstName + " " + pr.Payer.LastName),
			Phone: pr.Payer.Phone.Number,
		},
		CreatedAt:  pr.DateCreated,
		ApprovedAt: pr.DateApproved,
	}

	for _, item := range pr.AdditionalInfo.Items {
		record.LineItems = append(record.LineItems, domain.LineItem{
			ExternalID: item.ID,
			Title:      item.Title,
			Quantity:   int(item.Quantity.IntPart()),
			UnitPrice:  item.UnitPrice,
		})
	}

	return record
}

// PreferenceItem is one checkout line sent to the provider when creating a
// payment preference.
type PreferenceItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type preferenceRequest struct {
	Items []PreferenceItem `json:"items"`
}

type preferenceResponse struct {
	ID string `json:"id"`
}

// CreatePreference registers a checkout preference with the provider and
// returns its ID.
func (c *Client) CreatePreference(ctx context.Context, items []PreferenceItem) (string, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(preferenceRequest{Items: items})
	if err != nil {
		return "", fmt.Errorf("CreatePreference: marshal: %w", err)
	}

	endpoint := c.baseURL + "/checkout/preferences"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("CreatePreference: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("CreatePreference: send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("preference created",
		"items", len(items),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("CreatePreference: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var pref preferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return "", fmt.Errorf("CreatePreference: decode: %w", err)
	}
	if pref.ID == "" {
		return "", fmt.Errorf("CreatePreference: provider returned no preference id")
	}

	return pref.ID, nil
}
