// Package storage defines the unified persistence interface for Ali's
// long-term memory. Two backends implement it: SQLite (default, single
// file, pure Go) and PostgreSQL (for a mind that outgrows one machine).
package storage

import (
	"context"

	"github.com/ckaya/ali/internal/memory"
)

// Driver names for Store implementations.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the unified persistence surface.
type Store interface {
	// Episodes is the autobiographical memory store.
	Episodes() memory.EpisodeStore
	// Concepts is the semantic knowledge store.
	Concepts() memory.ConceptStore
	// Exchanges is the conversation log.
	Exchanges() memory.ExchangeStore

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error
	// Ping checks backend health.
	Ping(ctx context.Context) error
	// Driver reports which backend is in use.
	Driver() string
	Close() error
}
