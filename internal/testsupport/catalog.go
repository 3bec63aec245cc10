package testsupport

import (
	"context"
	"testing"

	"shuttle/internal/catalog"
	"shuttle/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewAcquisition creates a catalog row for tests using the provided store.
func NewAcquisition(t testing.TB, store *catalog.Store, assetPath, bundlePath string) *catalog.Acquisition {
	t.Helper()

	acq, err := store.NewAcquisition(context.Background(), assetPath, bundlePath)
	if err != nil {
		t.Fatalf("store.NewAcquisition: %v", err)
	}
	return acq
}
