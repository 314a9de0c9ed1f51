package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/tasklist/internal/store"
	"github.com/starford/tasklist/internal/store/mongostore"
	"github.com/starford/tasklist/internal/store/sqlitestore"
	"github.com/starford/tasklist/internal/store/surrealstore"
)

const connectTimeout = 15 * time.Second

// OpenStore connects the backend selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var (
		s   store.Store
		err error
	)
	switch cfg.Driver {
	case store.DriverMongoDB:
		s, err = mongostore.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Collection)
	case store.DriverSurrealDB:
		s, err = surrealstore.Connect(ctx, surrealstore.Options{
			URL:       cfg.SurrealDB.URL,
			Namespace: cfg.SurrealDB.Namespace,
			Database:  cfg.SurrealDB.Database,
			Username:  cfg.SurrealDB.Username,
			Password:  cfg.SurrealDB.Password,
		})
	case store.DriverSQLite:
		s, err = sqlitestore.Open(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return s, nil
}
