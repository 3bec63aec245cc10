package assets

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"shuttle/internal/fileutil"
)

var thumbnailBaseNames = []string{"thumbnail", "thumb", "preview", "icon"}

var thumbnailExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// LocateThumbnail finds a thumbnail image inside folder by filename
// convention. Top-level conventional names win; otherwise the subtree is
// searched for the same names, exact or as a _name suffix (rock_thumb.png).
// Returns "" when nothing matches.
func LocateThumbnail(folder string) string {
	for _, base := range thumbnailBaseNames {
		for _, ext := range thumbnailExtensions {
			candidate := filepath.Join(folder, base+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}

	var found string
	_ = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isThumbnailName(d.Name()) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func isThumbnailName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, candidate := range thumbnailExtensions {
		if ext != candidate {
			continue
		}
		for _, base := range thumbnailBaseNames {
			if stem == base || strings.HasSuffix(stem, "_"+base) {
				return true
			}
		}
	}
	return false
}

// InlineThumbnail reads the image at path and returns it as a base64 data
// URI for embedding in a notification payload.
func InlineThumbnail(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read thumbnail: %w", err)
	}
	return "data:" + thumbnailMIME(path) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func thumbnailMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// CacheThumbnail copies the thumbnail at path into cacheDir under the
// given id, preserving the extension, and returns the cached location.
// The copy is hash-verified.
func CacheThumbnail(path, cacheDir, id string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail cache: %w", err)
	}
	cached := filepath.Join(cacheDir, id+strings.ToLower(filepath.Ext(path)))
	if err := fileutil.CopyFileVerified(path, cached); err != nil {
		return "", err
	}
	return cached, nil
}
