package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	doc_key    VARCHAR(191) NOT NULL PRIMARY KEY,
	value      JSON NOT NULL,
	updated_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)
)`

// MySQLDocumentStore stores documents in a MySQL JSON column.
type MySQLDocumentStore struct {
	db *sql.DB
}

func NewMySQLDocumentStore(db *sql.DB) *MySQLDocumentStore {
	return &MySQLDocumentStore{db: db}
}

// Open connects to MySQL using a go-sql-driver DSN and creates the documents table.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return db, nil
}

func (m *MySQLDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE doc_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (m *MySQLDocumentStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO documents (doc_key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP(3))
	ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`

	_, err := m.db.ExecContext(ctx, query, key, string(value))
	return err
}

var _ interfaces.DocumentStore = (*MySQLDocumentStore)(nil)
