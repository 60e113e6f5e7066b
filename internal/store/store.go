// Package store defines the datastore abstraction for restockd. Business
// logic depends on the Store interface, never on concrete implementations,
// so the engine can be tested without a running database.
package store

import (
	"context"

	"github.com/restockd/restockd/pkg/types"
)

// Store defines all data access operations for restockd. The catalog is
// read-only from the application's point of view; rows are managed out of
// band.
type Store interface {
	// ListProducts loads the full product catalog in the table's natural
	// order. This is the only call whose failure aborts a run.
	ListProducts(ctx context.Context) ([]types.Product, error)

	// Migrate applies pending SQL schema migrations.
	Migrate(ctx context.Context) error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error
}
