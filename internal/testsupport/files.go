package testsupport

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteAssetFolder creates a minimal importable asset folder at path: one
// model file, a metadata file naming the asset, and a thumbnail.
func WriteAssetFolder(t testing.TB, path, name, assetType string) {
	t.Helper()

	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	meta := fmt.Sprintf("{\"name\": %q, \"type\": %q}", name, assetType)
	files := map[string][]byte{
		"model.fbx":     []byte("binary model payload"),
		"asset.json":    []byte(meta),
		"thumbnail.png": []byte("png bytes"),
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(path, file), content, 0o644); err != nil {
			t.Fatalf("write %s: %v", file, err)
		}
	}
}

// WriteZipBundle writes a zip archive at path containing the given members.
func WriteZipBundle(t testing.TB, path string, members map[string]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range members {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip %s: %v", path, err)
	}
}
