package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// SQLiteStore keeps every collection in one documents table with a JSON payload.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates it.
func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, logger: logger.With().Str("component", "sqlite").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL CHECK (json_valid(data)),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_date
			ON documents(collection, json_extract(data, '$.date'))`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > 60 {
		return q[:60] + "..."
	}
	return q
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string, out any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	for _, c := range q.Where {
		sb.WriteString(` AND json_extract(data, ?) `)
		if c.Op == OpEq {
			sb.WriteString(`=`)
		} else {
			sb.WriteString(string(c.Op))
		}
		sb.WriteString(` ?`)
		args = append(args, "$."+c.Field, sqlValue(c.Value))
	}
	if q.OrderBy != "" {
		sb.WriteString(` ORDER BY json_extract(data, ?)`)
		args = append(args, "$."+q.OrderBy)
		if q.Desc {
			sb.WriteString(` DESC`)
		}
		sb.WriteString(`, created_at, id`)
	} else {
		sb.WriteString(` ORDER BY created_at, id`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, Document{ID: id, Data: []byte(data)})
	}
	return docs, rows.Err()
}

// sqlValue maps Go values onto what json_extract yields for the same JSON value.
func sqlValue(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	}
	return v
}

func (s *SQLiteStore) Add(ctx context.Context, collection string, v any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, v); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	return upsert(ctx, s.db, collection, id, data)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, collection, id string, data []byte) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLiteStore) Replace(ctx context.Context, collection, id string, build BuildFunc) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTx(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		v, err := build(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
		}
		return upsert(ctx, tx, collection, id, data)
	})
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	fields, err := toMap(patch)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTx(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}

		var doc map[string]any
		if err := json.Unmarshal(current.Data, &doc); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		for k, v := range fields {
			doc[k] = v
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
		}
		return upsert(ctx, tx, collection, id, data)
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

// Backup writes a consistent snapshot of the database to dest.
func (s *SQLiteStore) Backup(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func getTx(ctx context.Context, tx *sql.Tx, collection, id string) (*Document, error) {
	var data string
	err := tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &Document{ID: id, Data: []byte(data)}, nil
}
