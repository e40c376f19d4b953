package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emiferro/tienda-pagos/internal/logging"
)

// Stand-in for the payment provider's API, used for local development of the
// webhook pipeline. Every payment id is reported as approved unless it starts
// with a prefix that selects another status (e.g. "pending-123").
func main() {
	logging.Init("mock-gateway", "info", os.Getenv("APP_ENV"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/payments/{id}", handleGetPayment)
	mux.HandleFunc("POST /checkout/preferences", handleCreatePreference)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	slog.Info("mock gateway started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	status := "approved"
	for _, s := range []string{"pending", "rejected", "refunded"} {
		if strings.HasPrefix(id, s) {
			status = s
			break
		}
	}

	payment := map[string]any{
		"id":                 id,
		"status":             status,
		"status_detail":      "accredited",
		"transaction_amount": 200,
		"currency_id":        "ARS",
		"payment_method_id":  "visa",
		"date_created":       time.Now().UTC().Format(time.RFC3339),
		"date_approved":      time.Now().UTC().Format(time.RFC3339),
		"payer": map[string]any{
			"email": "comprador@example.com",
		},
		"additional_info": map[string]any{
			"items": []map[string]any{
				{
					"id":         "sku1",
					"title":      "Gorro tejido",
					"quantity":   "2",
					"unit_price": 100,
				},
			},
		},
	}
	writeJSON(w, http.StatusOK, payment)
}

func handleCreatePreference(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "items are required"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id": fmt.Sprintf("pref-%s", uuid.NewString()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
