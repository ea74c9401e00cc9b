package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

// DeliveryUseCase forwards customer-facing events to the delivery gateway at most
// once per event, even when the queue redelivers.
type DeliveryUseCase struct {
	notifier ports.Notifier
	deduper  ports.DeliveryDeduper
	claimTTL time.Duration
	logger   *slog.Logger
}

func NewDeliveryUseCase(notifier ports.Notifier, deduper ports.DeliveryDeduper, claimTTL time.Duration, logger *slog.Logger) *DeliveryUseCase {
	return &DeliveryUseCase{
		notifier: notifier,
		deduper:  deduper,
		claimTTL: claimTTL,
		logger:   loggerOrDefault(logger),
	}
}

func (uc *DeliveryUseCase) HandleEvent(ctx context.Context, event domain.DocumentEvent) error {
	key := "delivery:" + event.ID
	claimed, err := uc.deduper.Claim(ctx, key, uc.claimTTL)
	if err != nil {
		return fmt.Errorf("claim delivery: %w", err)
	}
	if !claimed {
		uc.logger.Info("delivery_duplicate_skipped", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	err = uc.notifier.Send(ctx, domain.Notification{
		IdempotencyKey: event.ID,
		Template:       event.Type,
		BusinessID:     event.BusinessID,
		CustomerID:     event.CustomerID,
		DocumentKind:   event.DocumentKind,
		DocumentID:     event.DocumentID,
		Link:           event.Link,
	})
	if err != nil {
		if releaseErr := uc.deduper.Release(ctx, key); releaseErr != nil {
			return fmt.Errorf("send notification: %w; release claim: %v", err, releaseErr)
		}
		return fmt.Errorf("send notification: %w", err)
	}

	uc.logger.Info("notification_sent",
		"event_id", event.ID,
		"event_type", event.Type,
		"document_kind", event.DocumentKind,
		"document_id", event.DocumentID,
	)
	return nil
}
