package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces" // interface DocumentStore
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresDocumentStore struct {
	db *sql.DB
}

func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{
		db: db,
	}
}

// Open connects to postgres and makes sure the documents table exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return db, nil
}

func (p *PostgresDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM documents WHERE key = $1`

	var value []byte
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts the whole document. Concurrent writers overwrite each other.
func (p *PostgresDocumentStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO documents (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	_, err := p.db.ExecContext(ctx, query, key, string(value))
	return err
}

var _ interfaces.DocumentStore = (*PostgresDocumentStore)(nil)
