package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

var bundleExtensions = map[string]struct{}{
	".zip": {},
	".7z":  {},
	".rar": {},
	".tar": {},
	".tgz": {},
	".gz":  {},
	".bz2": {},
	".xz":  {},
	".zst": {},
}

// IsBundle reports whether path looks like a compressed asset bundle.
func IsBundle(path string) bool {
	_, ok := bundleExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DestinationFor returns the sibling folder a bundle extracts into: the
// bundle path minus its extension, with a trailing .tar from compound
// extensions like .tar.gz stripped as well.
func DestinationFor(bundlePath string) string {
	dest := strings.TrimSuffix(bundlePath, filepath.Ext(bundlePath))
	if strings.EqualFold(filepath.Ext(dest), ".tar") {
		dest = strings.TrimSuffix(dest, filepath.Ext(dest))
	}
	return dest
}

// Extract unpacks the bundle into its DestinationFor folder and returns
// that folder. On any failure the partial destination is removed and the
// bundle is left in place.
func Extract(ctx context.Context, bundlePath string) (string, error) {
	dest := DestinationFor(bundlePath)
	if dest == bundlePath {
		return "", fmt.Errorf("bundle %q has no extension to derive a destination from", bundlePath)
	}

	f, err := os.Open(bundlePath)
	if err != nil {
		return "", fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	format, input, err := archives.Identify(ctx, filepath.Base(bundlePath), f)
	if err != nil {
		return "", fmt.Errorf("identify bundle format: %w", err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return "", fmt.Errorf("format %s is not extractable", format.Extension())
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	err = extractor.Extract(ctx, input, func(ctx context.Context, info archives.FileInfo) error {
		return writeMember(dest, info)
	})
	if err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("extract bundle: %w", err)
	}
	return dest, nil
}

func writeMember(dest string, info archives.FileInfo) error {
	target, err := memberPath(dest, info.NameInArchive)
	if err != nil {
		return err
	}

	switch {
	case info.IsDir():
		return os.MkdirAll(target, 0o755)
	case info.LinkTarget != "":
		// Links can point anywhere; skip them rather than follow.
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := info.Open()
	if err != nil {
		return fmt.Errorf("open member %q: %w", info.NameInArchive, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write member %q: %w", info.NameInArchive, err)
	}
	return out.Close()
}

// memberPath joins a member name onto dest, rejecting names that resolve
// outside the destination.
func memberPath(dest, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." {
		return dest, nil
	}
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("bundle member %q escapes destination", name)
	}
	return filepath.Join(dest, cleaned), nil
}
