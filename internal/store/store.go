// Package store defines the persistence contract for items.
//
// Every backend assigns ids and maintains CreatedAt/UpdatedAt itself.
// Implementations translate missing documents into apperr.ErrNotFound and
// ids they cannot parse into apperr.ErrInvalidID.
package store

import (
	"context"

	"github.com/starford/tasklist/internal/models"
)

// Store is the single-collection item repository.
type Store interface {
	// List returns every item, newest first.
	List(ctx context.Context) ([]models.Item, error)
	// Get returns the item with the given id.
	Get(ctx context.Context, id string) (*models.Item, error)
	// Create inserts a new item with done=false.
	Create(ctx context.Context, title string) (*models.Item, error)
	// Update replaces the patched fields and returns the post-update item.
	Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error)
	// Delete removes the item with the given id.
	Delete(ctx context.Context, id string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Drivers accepted by the configuration.
const (
	DriverMongoDB   = "mongodb"
	DriverSurrealDB = "surrealdb"
	DriverSQLite    = "sqlite"
)
