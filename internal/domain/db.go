package domain

import "context"

// Database is the lifecycle of the store behind a CatalogIndex. Each
// implementation owns its schema and migrations.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
