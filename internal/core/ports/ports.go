package ports

import (
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

type Clock interface {
	Now() time.Time
}

// TokenGenerator returns an unguessable, URL-safe token.
type TokenGenerator interface {
	NewToken() (string, error)
}

// TransitionObserver records lifecycle transitions and signing outcomes.
type TransitionObserver interface {
	ObserveTransition(kind domain.DocumentKind, from, to string)
	ObserveSignature(outcome string)
}
