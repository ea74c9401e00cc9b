package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/handyman-docs/internal/config"
	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
	"github.com/kirillkom/handyman-docs/internal/core/usecase"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/dedupe"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/ledger/excel"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/notify/gateway"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/queue/nats"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/repository/memory"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/resilience"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/signature"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/system"
	"github.com/kirillkom/handyman-docs/internal/observability/metrics"
)

const signatureMaxWidth = 1200

type App struct {
	Config  config.Config
	Profile domain.BusinessProfile

	Queue *nats.Queue

	QuoteUC      ports.QuoteService
	InvoiceUC    ports.InvoiceService
	SigningUC    ports.SigningService
	CalculatorUC ports.Calculator
	DeliveryUC   ports.DocumentEventHandler
	AccountingUC ports.DocumentEventHandler

	closeFn func()
}

type repositories struct {
	quotes   ports.QuoteRepository
	invoices ports.InvoiceRepository
	tokens   ports.SigningTokenRepository
	db       *sql.DB
}

// New wires the adapters for one process. Engine metrics land on registerer,
// which is the registry the process serves on /metrics.
func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger, registerer prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	profile, err := config.LoadBusinessProfile(cfg.BusinessProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load business profile: %w", err)
	}

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers := []func(){}
	if repos.db != nil {
		closers = append(closers, func() { _ = repos.db.Close() })
	}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	engineMetrics := metrics.NewEngineMetrics(service, registerer)
	policy := resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: cfg.ResilienceRetryInitialBackoff,
		RetryMaxBackoff:     cfg.ResilienceRetryMaxBackoff,
		BreakerEnabled:      cfg.ResilienceBreakerEnabled,
		BreakerOpenTimeout:  cfg.ResilienceBreakerOpenTimeout,
	}
	executorOptions := []resilience.Option{resilience.WithObserver(engineMetrics), resilience.WithLogger(logger)}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.PublishConfig(policy), executorOptions...),
		Logger:             logger,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	closers = append(closers, queue.Close)

	deduper, closeDeduper, err := openDeduper(cfg, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	closers = append(closers, closeDeduper)

	notifier := gateway.New(cfg.NotifyURL, cfg.NotifyAPIKey, gateway.Options{
		Timeout:            cfg.NotifyTimeout,
		ResilienceExecutor: resilience.NewExecutor(resilience.DeliveryConfig(policy), executorOptions...),
	})
	inspector := signature.NewInspector(cfg.SignatureLimit, signatureMaxWidth)
	clock := system.Clock{}
	links := usecase.SigningLinks{BaseURL: cfg.PublicBaseURL, TTL: cfg.SigningTTL}

	quoteUC := usecase.NewQuoteUseCase(repos.quotes, repos.tokens, queue, system.TokenGenerator{}, clock, engineMetrics, profile, links, logger)
	invoiceUC := usecase.NewInvoiceUseCase(repos.invoices, repos.quotes, queue, clock, engineMetrics, profile, logger)
	signingUC := usecase.NewSigningUseCase(repos.quotes, repos.tokens, storage, inspector, queue, clock, engineMetrics, logger)
	deliveryUC := usecase.NewDeliveryUseCase(notifier, deduper, cfg.DeliveryTTL, logger)
	accountingUC := usecase.NewAccountingSyncUseCase(repos.invoices, excel.NewExporter(), storage, clock, logger)

	return &App{
		Config:  cfg,
		Profile: profile,
		Queue:   queue,

		QuoteUC:      quoteUC,
		InvoiceUC:    invoiceUC,
		SigningUC:    signingUC,
		CalculatorUC: usecase.NewCalculatorUseCase(profile),
		DeliveryUC:   deliveryUC,
		AccountingUC: accountingUC,

		closeFn: cleanup,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func openRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (repositories, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case "memory":
		logger.Warn("store_driver_memory", "detail", "documents are lost on restart")
		store := memory.NewStore()
		return repositories{quotes: store, invoices: store, tokens: store}, nil
	case "", "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return repositories{}, fmt.Errorf("migrate postgres: %w", err)
		}
		return repositories{
			quotes:   postgres.NewQuoteRepository(db),
			invoices: postgres.NewInvoiceRepository(db),
			tokens:   postgres.NewTokenRepository(db),
			db:       db,
		}, nil
	default:
		return repositories{}, domain.WrapError(domain.ErrInvalidConfiguration, "open repositories", fmt.Errorf("unknown store driver %q", cfg.StoreDriver))
	}
}

// openDeduper falls back to an in-process deduper when no redis is configured,
// which is only correct for a single worker replica.
func openDeduper(cfg config.Config, logger *slog.Logger) (ports.DeliveryDeduper, func(), error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		logger.Warn("delivery_dedupe_in_memory", "detail", "REDIS_ADDR is empty")
		return dedupe.NewMemoryDeduper(), func() {}, nil
	}
	deduper, err := dedupe.NewRedisDeduper(cfg.RedisAddr, "handyman:delivery:")
	if err != nil {
		return nil, nil, fmt.Errorf("init delivery deduper: %w", err)
	}
	return deduper, func() { _ = deduper.Close() }, nil
}
