package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/resilience"
)

const workerGroup = "workers"

// Queue publishes document events on "<prefix>.<event type>" subjects and
// fans them out to one member of the worker queue group.
type Queue struct {
	conn     *nats.Conn
	prefix   string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, prefix string) (*Queue, error) {
	return NewWithOptions(url, prefix, Options{})
}

func NewWithOptions(url, prefix string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("handyman-docs"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		prefix:   normalizePrefix(prefix),
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishEvent(ctx context.Context, event domain.DocumentEvent) error {
	return publishDocumentEvent(ctx, q.executor, q.conn.Publish, subjectFor(q.prefix, event.Type), event)
}

// SubscribeEvents blocks until ctx is done, then drains the subscription.
// Handler failures are logged; core NATS does not redeliver.
func (q *Queue) SubscribeEvents(ctx context.Context, handler ports.DocumentEventHandler) error {
	sub, err := q.conn.QueueSubscribe(q.prefix+".>", workerGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := decodeEvent(msg.Data)
		if err != nil {
			q.logger.Error("event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler.HandleEvent(handlerCtx, event); err != nil {
			q.logger.Error("event_handler_failed",
				"event_id", event.ID,
				"event_type", event.Type,
				"document_id", event.DocumentID,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return "handyman"
	}
	return prefix
}

func subjectFor(prefix string, eventType domain.EventType) string {
	return prefix + "." + string(eventType)
}

func decodeEvent(data []byte) (domain.DocumentEvent, error) {
	var event domain.DocumentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.DocumentEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.ID == "" || event.Type == "" || event.DocumentID == "" {
		return domain.DocumentEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode event", fmt.Errorf("incomplete event %q", event.ID))
	}
	return event, nil
}
