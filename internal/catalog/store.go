package catalog

import (
	"context"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// Store owns every read and write of the backing document. Load and Save
// always move the whole collection.
type Store interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
	Ping(ctx context.Context) error
}

// Watcher reports changes to the backing document made by any writer.
// Run blocks until ctx is done.
type Watcher interface {
	Run(ctx context.Context, onChange func()) error
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
