package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// SaveToken stores t and supersedes every earlier live token of the same quote.
func (r *TokenRepository) SaveToken(ctx context.Context, t domain.SigningToken) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE signing_tokens
SET superseded_at = $2
WHERE quote_id = $1 AND consumed_at IS NULL AND superseded_at IS NULL
`, t.QuoteID, t.CreatedAt); err != nil {
			return fmt.Errorf("supersede tokens: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO signing_tokens (token, quote_id, created_at, expires_at, consumed_at, superseded_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, t.Token, t.QuoteID, t.CreatedAt, t.ExpiresAt, t.ConsumedAt, t.SupersededAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.WrapError(domain.ErrInvalidInput, "save token", fmt.Errorf("token collision for quote %s", t.QuoteID))
			}
			return fmt.Errorf("insert token: %w", err)
		}
		return nil
	})
}

func (r *TokenRepository) GetToken(ctx context.Context, token string) (*domain.SigningToken, error) {
	t, err := getToken(ctx, r.db, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTokenNotFound, "get token", errors.New("unknown token"))
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// ConsumeToken marks the token used and writes q in one transaction. Only the
// caller whose conditional update hits a live token proceeds to the quote write.
func (r *TokenRepository) ConsumeToken(ctx context.Context, token string, consumedAt time.Time, q *domain.Quote) error {
	version := q.Version
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
UPDATE signing_tokens
SET consumed_at = $3
WHERE token = $1 AND quote_id = $2 AND consumed_at IS NULL AND superseded_at IS NULL
`, token, q.ID, consumedAt)
		if err != nil {
			return fmt.Errorf("consume token: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("consume token rows affected: %w", err)
		}
		if rows == 0 {
			return classifyUnconsumable(ctx, tx, token, q.ID)
		}
		return updateQuote(ctx, tx, q)
	})
	if err != nil {
		// the quote write rolled back with the transaction
		q.Version = version
		return err
	}
	return nil
}

func classifyUnconsumable(ctx context.Context, tx *sql.Tx, token, quoteID string) error {
	t, err := getToken(ctx, tx, token)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.WrapError(domain.ErrTokenNotFound, "consume token", errors.New("unknown token"))
	case err != nil:
		return fmt.Errorf("consume token: read token: %w", err)
	case t.QuoteID != quoteID:
		return domain.WrapError(domain.ErrInvalidInput, "consume token", fmt.Errorf("token belongs to quote %s, not %s", t.QuoteID, quoteID))
	case t.ConsumedAt != nil:
		return domain.WrapError(domain.ErrTokenAlreadyConsumed, "consume token", fmt.Errorf("token for quote %s", t.QuoteID))
	default:
		return domain.WrapError(domain.ErrTokenExpired, "consume token", fmt.Errorf("token for quote %s was replaced", t.QuoteID))
	}
}

func getToken(ctx context.Context, db querier, token string) (*domain.SigningToken, error) {
	var t domain.SigningToken
	err := db.QueryRowContext(ctx, `
SELECT token, quote_id, created_at, expires_at, consumed_at, superseded_at
FROM signing_tokens
WHERE token = $1
`, token).Scan(&t.Token, &t.QuoteID, &t.CreatedAt, &t.ExpiresAt, &t.ConsumedAt, &t.SupersededAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
