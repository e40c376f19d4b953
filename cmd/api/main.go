package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emiferro/tienda-pagos/internal/config"
	"github.com/emiferro/tienda-pagos/internal/gateway"
	"github.com/emiferro/tienda-pagos/internal/handler"
	"github.com/emiferro/tienda-pagos/internal/logging"
	"github.com/emiferro/tienda-pagos/internal/metrics"
	"github.com/emiferro/tienda-pagos/internal/middleware"
	"github.com/emiferro/tienda-pagos/internal/repository"
	"github.com/emiferro/tienda-pagos/internal/service"
	"github.com/emiferro/tienda-pagos/internal/signature"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("pagos-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAccessToken)
	settlementMetrics := metrics.NewSettlementMetrics()

	settler := service.NewSettler(
		gatewayClient,
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewAuditRepository(db),
		settlementMetrics,
		cfg.LowStockThreshold,
	)

	webhookHandler := handler.NewWebhookHandler(settler, signature.NewVerifier(cfg.WebhookSecret))
	preferenceHandler := handler.NewPreferenceHandler(gatewayClient)
	healthHandler := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/webhooks/payments", webhookHandler.ReceivePaymentWebhook)
	mux.HandleFunc("POST /api/v1/payments/preferences", preferenceHandler.CreatePreference)
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.Logging(h)
	h = middleware.CORS(cfg.AllowedOrigins)(h)
	h = middleware.Tracing(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
