package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
	"github.com/shopspring/decimal"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const uniqueViolation = "23505"

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded migrations. A postgres session lock serializes
// concurrent api/worker startups.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return fmt.Errorf("create migration lock: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations, goose.WithSessionLocker(locker))
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// storedItem persists the derived line total next to its inputs so a read can
// detect rows edited outside the engine.
type storedItem struct {
	ID          string          `json:"id"`
	Kind        domain.ItemKind `json:"kind"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

func marshalItems(items []domain.LineItem) ([]byte, error) {
	stored := make([]storedItem, 0, len(items))
	for _, item := range items {
		stored = append(stored, storedItem{
			ID:          item.ID,
			Kind:        item.Kind,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.Total(),
		})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	return raw, nil
}

func unmarshalItems(raw []byte) ([]domain.LineItem, error) {
	var stored []storedItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	items := make([]domain.LineItem, 0, len(stored))
	for _, s := range stored {
		item := domain.LineItem{
			ID:          s.ID,
			Kind:        s.Kind,
			Description: s.Description,
			Quantity:    s.Quantity,
			UnitPrice:   s.UnitPrice,
		}
		if err := item.VerifyStoredTotal(s.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// versionConflict tells a stale version apart from a missing row after a
// conditional update touched nothing.
func versionConflict(ctx context.Context, q querier, table, operation, id string, version int) error {
	var stored int
	err := q.QueryRowContext(ctx, "SELECT version FROM "+table+" WHERE id = $1", id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("%s %s", table, id))
	}
	if err != nil {
		return fmt.Errorf("%s: read version: %w", operation, err)
	}
	return domain.WrapError(domain.ErrConcurrentUpdate, operation, fmt.Errorf("%s %s: stored version %d, got %d", table, id, stored, version))
}
