// Package catalogaccess provides acquisition catalog operations that work
// both against a running daemon over IPC and against the database directly.
package catalogaccess

import (
	"context"

	"shuttle/internal/catalog"
	"shuttle/internal/ipc"
)

// Access provides catalog operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]ipc.Acquisition, error)
	Clear(ctx context.Context) (int64, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(store *catalog.Store) Access {
	return &storeAccess{store: store}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.CatalogStats, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]ipc.Acquisition, error) {
	resp, err := a.client.ImportsList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Clear(_ context.Context) (int64, error) {
	resp, err := a.client.ImportsClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

type storeAccess struct {
	store *catalog.Store
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return ipc.MergeCatalogStats(stats), nil
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]ipc.Acquisition, error) {
	var filters []catalog.Status
	for _, s := range statuses {
		if parsed, ok := catalog.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	items, err := a.store.List(ctx, filters...)
	if err != nil {
		return nil, err
	}
	return ipc.FromAcquisitions(items), nil
}

func (a *storeAccess) Clear(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}
