package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const (
	notifyChannel     = "catalog_documents"
	pgUndefinedTable  = "42P01"
	defaultDocumentID = "items"
)

// Schema creates the table PostgresStore expects. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS catalog_documents (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the backing document as one jsonb row. Every Save
// notifies the catalog_documents channel with the document name, which is how
// Run learns about writes from other processes.
type PostgresStore struct {
	db   *sql.DB
	dsn  string
	name string
	log  *zap.Logger
}

func OpenPostgresStore(dsn, name string, log *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresStore(db, dsn, name, log), nil
}

func NewPostgresStore(db *sql.DB, dsn, name string, log *zap.Logger) *PostgresStore {
	if name == "" {
		name = defaultDocumentID
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: db, dsn: dsn, name: name, log: log}
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, Schema)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) Load(ctx context.Context) ([]Item, error) {
	var body []byte

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT body
			FROM catalog_documents
			WHERE name = $1
		`, s.name).Scan(&body)
	})
	if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", s.name, err)
	}

	items := make([]Item, 0, 16)
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &DataFormatError{Source: "catalog_documents/" + s.name, Err: err}
	}
	return items, nil
}

func (s *PostgresStore) Save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	body, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_documents (name, body, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (name) DO UPDATE
			SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
		`, s.name, string(body)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, s.name); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// Run listens on a dedicated connection and calls onChange whenever this
// store's document is written.
func (s *PostgresStore) Run(ctx context.Context, onChange func()) error {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Payload != s.name {
			continue
		}
		s.log.Info("document changed, invalidating stats cache", zap.String("document", s.name))
		onChange()
	}
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
