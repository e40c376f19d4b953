package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/emiferro/tienda-pagos/internal/gateway"
	"github.com/emiferro/tienda-pagos/internal/logging"
)

type preferenceCreator interface {
	CreatePreference(ctx context.Context, items []gateway.PreferenceItem) (string, error)
}

type PreferenceHandler struct {
	gateway preferenceCreator
}

func NewPreferenceHandler(gateway preferenceCreator) *PreferenceHandler {
	return &PreferenceHandler{gateway: gateway}
}

// Field names follow the storefront's wire format.
type preferenceRequest struct {
	Items []preferenceItem `json:"items"`
}

type preferenceItem struct {
	Product  preferenceProduct `json:"producto"`
	Quantity int               `json:"cantidad"`
}

type preferenceProduct struct {
	ID    string          `json:"id"`
	Name  string          `json:"nombre"`
	Price decimal.Decimal `json:"precio"`
}

func (r preferenceRequest) validate() []FieldError {
	var errs []FieldError

	if len(r.Items) == 0 {
		return append(errs, FieldError{Field: "items", Message: "required and must not be empty"})
	}

	for i, item := range r.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.Product.ID == "" {
			errs = append(errs, FieldError{Field: prefix + ".producto.id", Message: "required"})
		}
		if item.Product.Name == "" {
			errs = append(errs, FieldError{Field: prefix + ".producto.nombre", Message: "required"})
		}
		if !item.Product.Price.IsPositive() {
			errs = append(errs, FieldError{Field: prefix + ".producto.precio", Message: "must be greater than zero"})
		}
		if item.Quantity <= 0 {
			errs = append(errs, FieldError{Field: prefix + ".cantidad", Message: "must be greater than zero"})
		}
	}

	return errs
}

// CreatePreference validates the checkout request and registers a payment
// preference with the provider.
func (h *PreferenceHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse preference request", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	items := make([]gateway.PreferenceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, gateway.PreferenceItem{
			ID:        item.Product.ID,
			Title:     item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		})
	}

	prefID, err := h.gateway.CreatePreference(r.Context(), items)
	if err != nil {
		log.Error("preference creation failed", "error", err, "items", len(items))
		RespondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "preference creation failed",
			"details": "payment provider request did not succeed",
		})
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"id": prefID})
}
