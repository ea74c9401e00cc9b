package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/resilience"
)

const publishOperation = "nats.publish"

// connection states a short retry can outlive
var transientPublishErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	nats.ErrDisconnected,
	nats.ErrSlowConsumer,
}

type publishFunc func(subject string, payload []byte) error

// publishDocumentEvent encodes event and hands it to publish through the
// executor when one is set. Failures a later attempt may clear come back as
// ErrTemporary.
func publishDocumentEvent(ctx context.Context, executor *resilience.Executor, publish publishFunc, subject string, event domain.DocumentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	call := func(context.Context) error {
		return publish(subject, payload)
	}

	if executor != nil {
		err = executor.Execute(ctx, publishOperation, call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	if err == nil {
		return nil
	}

	err = fmt.Errorf("publish %s event %s for %s %s: %w", event.Type, event.ID, event.DocumentKind, event.DocumentID, err)
	if isTransientPublishError(err) || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}

func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	// an open breaker already counted the failures that tripped it
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{}
	case isTransientPublishError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isTransientPublishError(err error) bool {
	for _, transient := range transientPublishErrors {
		if errors.Is(err, transient) {
			return true
		}
	}
	return false
}
