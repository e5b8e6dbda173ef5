// Package sqlite implements docstore.Store on a single SQLite documents table
// with JSON bodies. Atomic runs map to immediate SQLite transactions; lock
// contention surfaces as a transient error so the ledger's optimistic retry
// loop can re-run the whole protocol.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/matten-rd/finaid/internal/docstore"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// _txlock=immediate takes the write lock at BEGIN so concurrent writers
	// fail fast with SQLITE_BUSY instead of deadlocking on upgrade.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_txlock=immediate&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite document store ready", "path", dbPath)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) RunAtomic(ctx context.Context, fn func(tx docstore.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return maybeTransient(fmt.Errorf("begin transaction: %w", err))
	}

	t := &storeTx{ctx: ctx, tx: sqlTx}
	if err := fn(t); err != nil {
		sqlTx.Rollback()
		return maybeTransient(err)
	}

	if err := sqlTx.Commit(); err != nil {
		return maybeTransient(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return maybeTransient(fmt.Errorf("get %s/%s: %w", collection, id, err))
	}
	return json.Unmarshal(body, out)
}

func (s *Store) List(ctx context.Context, collection string, out any) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return maybeTransient(fmt.Errorf("list %s: %w", collection, err))
	}
	defer rows.Close()

	var bodies []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		bodies = append(bodies, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return maybeTransient(fmt.Errorf("list %s: %w", collection, err))
	}

	arr, err := json.Marshal(bodies)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}
	return json.Unmarshal(arr, out)
}

type storeTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *storeTx) Get(collection, id string, out any) error {
	var body []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(body, out)
}

func (t *storeTx) Set(collection, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}
	return t.write(collection, id, body)
}

func (t *storeTx) Increment(collection, id, field string, delta int64) error {
	var body []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read for increment %s/%s: %w", collection, id, err)
	}

	next, err := docstore.ApplyIncrement(body, field, delta)
	if err != nil {
		return fmt.Errorf("increment %s/%s: %w", collection, id, err)
	}
	return t.write(collection, id, next)
}

func (t *storeTx) Delete(collection, id string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (t *storeTx) write(collection, id string, body []byte) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(collection, id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, collection, id, body)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	return nil
}

// maybeTransient classifies SQLite contention as retryable.
func maybeTransient(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return docstore.Transient(err)
	}
	return err
}
