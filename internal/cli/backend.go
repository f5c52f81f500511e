package cli

import (
	"context"
	"net/url"
	"time"

	"MiniCatalog/internal/catalog"
)

// backend is what the commands run against: the document on disk, or a
// running catalog service when --server is set.
type backend interface {
	List(ctx context.Context, q url.Values) (catalog.ListResult, error)
	Get(ctx context.Context, id string) (catalog.Item, error)
	Create(ctx context.Context, body []byte) (catalog.Item, error)
	Stats(ctx context.Context) (catalog.StatsResponse, error)
}

type localBackend struct {
	store catalog.Store
}

func (b localBackend) List(ctx context.Context, q url.Values) (catalog.ListResult, error) {
	items, err := b.store.Load(ctx)
	if err != nil {
		return catalog.ListResult{}, err
	}
	return catalog.ApplyListQuery(items, catalog.ParseListQuery(q)), nil
}

func (b localBackend) Get(ctx context.Context, id string) (catalog.Item, error) {
	items, err := b.store.Load(ctx)
	if err != nil {
		return catalog.Item{}, err
	}
	return catalog.FindItem(items, id)
}

func (b localBackend) Create(ctx context.Context, body []byte) (catalog.Item, error) {
	it, err := catalog.ValidateNewItem(body)
	if err != nil {
		return catalog.Item{}, err
	}
	return catalog.AppendItem(ctx, b.store, catalog.NewIDGenerator(), it)
}

func (b localBackend) Stats(ctx context.Context) (catalog.StatsResponse, error) {
	items, err := b.store.Load(ctx)
	if err != nil {
		return catalog.StatsResponse{}, err
	}
	return catalog.StatsResponse{Snapshot: catalog.ComputeStats(items, time.Now())}, nil
}
