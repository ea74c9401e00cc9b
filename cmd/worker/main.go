package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/handyman-docs/internal/bootstrap"
	"github.com/kirillkom/handyman-docs/internal/config"
	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/usecase"
	"github.com/kirillkom/handyman-docs/internal/observability/logging"
	"github.com/kirillkom/handyman-docs/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("handyman-worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, "worker", logger, workerMetrics.Registerer())
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	dispatcher := usecase.NewEventDispatcher(logger).
		Register(app.DeliveryUC, domain.EventDocumentSent, domain.EventInvoiceReminder).
		Register(app.AccountingUC, domain.EventInvoicePaid)

	logger.Info("worker_subscribed", "subject_prefix", cfg.NATSSubjectPrefix)
	if err := app.Queue.SubscribeEvents(ctx, workerMetrics.Instrument(dispatcher)); err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
