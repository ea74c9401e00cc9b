package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/infrastructure/resilience"
)

const messagesPath = "/v1/messages"

// Client hands notifications to the SMS/e-mail delivery gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type messageRequest struct {
	Template     string `json:"template"`
	BusinessID   string `json:"business_id"`
	CustomerID   string `json:"customer_id"`
	DocumentKind string `json:"document_kind"`
	DocumentID   string `json:"document_id"`
	Link         string `json:"link,omitempty"`
}

type messageResponse struct {
	MessageID string `json:"message_id"`
}

// Send is safe to repeat: the gateway dedupes on the idempotency key and
// answers a replay with 409, which counts as delivered.
func (c *Client) Send(ctx context.Context, n domain.Notification) error {
	payload := messageRequest{
		Template:     string(n.Template),
		BusinessID:   n.BusinessID,
		CustomerID:   n.CustomerID,
		DocumentKind: string(n.DocumentKind),
		DocumentID:   n.DocumentID,
		Link:         n.Link,
	}
	call := func(callCtx context.Context) error {
		var out messageResponse
		err := c.postJSON(callCtx, messagesPath, n.IdempotencyKey, payload, &out, "send message")
		if isReplay(err) {
			return nil
		}
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "notify.send", call, classifyGatewayError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded("send message", err)
}
