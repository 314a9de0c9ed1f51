// Package surrealstore is the SurrealDB item store. Items live in one table;
// the public id is the record key without the table prefix.
package surrealstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	surrealdb "github.com/surrealdb/surrealdb.go"
	sdbmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/models"
	"github.com/starford/tasklist/internal/store"
)

// DefaultTable is the table items are stored in.
const DefaultTable = "items"

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// record uses CustomDateTime so timestamps travel as native datetimes.
type record struct {
	ID        *sdbmodels.RecordID      `json:"id,omitempty"`
	Title     string                   `json:"title"`
	Done      bool                     `json:"done"`
	CreatedAt sdbmodels.CustomDateTime `json:"createdAt"`
	UpdatedAt sdbmodels.CustomDateTime `json:"updatedAt"`
}

func (r record) item() models.Item {
	it := models.Item{
		Title:     r.Title,
		Done:      r.Done,
		CreatedAt: r.CreatedAt.Time.UTC(),
		UpdatedAt: r.UpdatedAt.Time.UTC(),
	}
	if r.ID != nil {
		it.ID = fmt.Sprint(r.ID.ID)
	}
	return it
}

// Options holds the connection settings.
type Options struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	Table     string
}

// Store implements store.Store on a SurrealDB table.
type Store struct {
	db    *surrealdb.DB
	table string
}

// Verify *Store satisfies store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Connect opens the endpoint, signs in when credentials are given and
// selects the namespace and database.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	db, err := surrealdb.FromEndpointURLString(ctx, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("surrealdb: connect: %w", err)
	}
	if opts.Username != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{
			Username: opts.Username,
			Password: opts.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("surrealdb: sign in: %w", err)
		}
	}
	if err := db.Use(ctx, opts.Namespace, opts.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("surrealdb: use %s/%s: %w", opts.Namespace, opts.Database, err)
	}
	return &Store{db: db, table: opts.Table}, nil
}

// List returns all items, newest first.
func (s *Store) List(ctx context.Context) ([]models.Item, error) {
	recs, err := s.query(ctx, "SELECT * FROM type::table($tb) ORDER BY createdAt DESC, id DESC", map[string]any{
		"tb": s.table,
	})
	if err != nil {
		return nil, fmt.Errorf("surrealdb: list items: %w", err)
	}
	out := make([]models.Item, len(recs))
	for i, r := range recs {
		out[i] = r.item()
	}
	return out, nil
}

// Get returns a single item.
func (s *Store) Get(ctx context.Context, id string) (*models.Item, error) {
	rid, err := s.recordID(id)
	if err != nil {
		return nil, err
	}
	recs, err := s.query(ctx, "SELECT * FROM $id", map[string]any{"id": rid})
	if err != nil {
		return nil, fmt.Errorf("surrealdb: get item: %w", err)
	}
	return first(recs)
}

// Create inserts a new pending item. Keys are UUIDv7 in hex, so sorting by
// key follows creation order when two items share a timestamp.
func (s *Store) Create(ctx context.Context, title string) (*models.Item, error) {
	key, err := newKey()
	if err != nil {
		return nil, fmt.Errorf("surrealdb: create item: %w", err)
	}
	now := sdbmodels.CustomDateTime{Time: time.Now().UTC()}
	rec, err := surrealdb.Create[record](ctx, s.db, sdbmodels.NewRecordID(s.table, key), map[string]any{
		"title":     title,
		"done":      false,
		"createdAt": now,
		"updatedAt": now,
	})
	if err != nil {
		return nil, fmt.Errorf("surrealdb: create item: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("surrealdb: create item: empty result")
	}
	it := rec.item()
	return &it, nil
}

// updateSQL replaces only the fields whose variables are set and moves
// updatedAt past its stored value even when the clock has not. The WHERE
// clause keeps UPDATE from creating a record that does not exist yet, so an
// empty result means the id is unknown.
const updateSQL = `UPDATE $id SET
	title = $title ?? title,
	done = $done ?? done,
	updatedAt = IF updatedAt >= $now THEN updatedAt + 1ms ELSE $now END
WHERE createdAt != NONE RETURN AFTER`

// Update applies patch to an existing record.
func (s *Store) Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	rid, err := s.recordID(id)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"id":  rid,
		"now": sdbmodels.CustomDateTime{Time: time.Now().UTC()},
	}
	if patch.Title != nil {
		vars["title"] = *patch.Title
	}
	if patch.Done != nil {
		vars["done"] = *patch.Done
	}
	recs, err := s.query(ctx, updateSQL, vars)
	if err != nil {
		return nil, fmt.Errorf("surrealdb: update item: %w", err)
	}
	return first(recs)
}

// Delete removes an item.
func (s *Store) Delete(ctx context.Context, id string) error {
	rid, err := s.recordID(id)
	if err != nil {
		return err
	}
	recs, err := s.query(ctx, "DELETE $id RETURN BEFORE", map[string]any{"id": rid})
	if err != nil {
		return fmt.Errorf("surrealdb: delete item: %w", err)
	}
	if len(recs) == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Ping asks the server for its version.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Version(ctx)
	return err
}

// Close closes the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

// Drop removes the table. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, s.db, "REMOVE TABLE IF EXISTS "+s.table, nil)
	return err
}

func (s *Store) recordID(id string) (sdbmodels.RecordID, error) {
	if !keyPattern.MatchString(id) {
		return sdbmodels.RecordID{}, apperr.ErrInvalidID
	}
	return sdbmodels.NewRecordID(s.table, id), nil
}

// query runs a single statement and returns its rows.
func (s *Store) query(ctx context.Context, sql string, vars map[string]any) ([]record, error) {
	res, err := surrealdb.Query[[]record](ctx, s.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	qr := (*res)[0]
	if qr.Status != "OK" {
		return nil, fmt.Errorf("statement status %s", qr.Status)
	}
	return qr.Result, nil
}

func newKey() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(u.String(), "-", ""), nil
}

func first(recs []record) (*models.Item, error) {
	if len(recs) == 0 {
		return nil, apperr.ErrNotFound
	}
	it := recs[0].item()
	return &it, nil
}
