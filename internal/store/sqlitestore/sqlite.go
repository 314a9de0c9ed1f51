// Package sqlitestore is the embedded item store backed by SQLite. It is used
// for local development and as the backend of the HTTP and service tests.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/models"
	"github.com/starford/tasklist/internal/store"
)

const itemColumns = `id, title, done, created_at, updated_at`

// DB wraps a sql.DB with item operations. Timestamps are stored as unix
// milliseconds so ordering never depends on text formatting.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// Verify *DB satisfies store.Store at compile time.
var _ store.Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(path string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	db := &DB{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// List returns all items, newest first.
func (db *DB) List(ctx context.Context) ([]models.Item, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list items: %w", err)
	}
	defer rows.Close()

	out := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan item: %w", err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// Get returns a single item.
func (db *DB) Get(ctx context.Context, id string) (*models.Item, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get item: %w", err)
	}
	return it, nil
}

// Create inserts a new pending item.
func (db *DB) Create(ctx context.Context, title string) (*models.Item, error) {
	now := db.timestamp()
	it := &models.Item{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO items (id, title, done, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`,
		it.ID, it.Title, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert item: %w", err)
	}
	return it, nil
}

// Update applies patch in a single statement and returns the new row.
// updated_at moves forward by at least one millisecond on every write, even
// when the clock has not.
func (db *DB) Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	var title sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}
	var done sql.NullBool
	if patch.Done != nil {
		done = sql.NullBool{Bool: *patch.Done, Valid: true}
	}
	row := db.conn.QueryRowContext(ctx, `
		UPDATE items SET
			title      = COALESCE(?, title),
			done       = COALESCE(?, done),
			updated_at = MAX(?, updated_at + 1)
		WHERE id = ?
		RETURNING `+itemColumns,
		title, done, db.timestamp().UnixMilli(), id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: update item: %w", err)
	}
	return it, nil
}

// Delete removes an item.
func (db *DB) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete item: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close(_ context.Context) error {
	return db.conn.Close()
}

func (db *DB) timestamp() time.Time {
	return db.now().UTC().Truncate(time.Millisecond)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.Item, error) {
	var (
		it               models.Item
		created, updated int64
	)
	if err := s.Scan(&it.ID, &it.Title, &it.Done, &created, &updated); err != nil {
		return nil, err
	}
	it.CreatedAt = time.UnixMilli(created).UTC()
	it.UpdatedAt = time.UnixMilli(updated).UTC()
	return &it, nil
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.ErrInvalidID
	}
	return nil
}
