package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Verdict is the content classification of a candidate asset folder.
type Verdict struct {
	Valid   bool
	IsEmpty bool
	Reason  string
}

// Validate classifies the folder at path by its contents. It fails closed:
// a missing path, a non-directory, or any traversal error yields an
// invalid verdict with the cause in Reason, never an error return. The
// result is computed fresh on every call.
func Validate(path string) Verdict {
	info, err := os.Stat(path)
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("folder not accessible: %v", err)}
	}
	if !info.IsDir() {
		return Verdict{Reason: "not a directory"}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("folder not readable: %v", err)}
	}
	if len(entries) == 0 {
		return Verdict{IsEmpty: true, Reason: "folder is empty"}
	}

	var (
		modelCount   int
		hasMetadata  bool
		textureCount int
	)
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch {
		case IsModelFile(name):
			modelCount++
		case IsStructuredDataFile(name):
			hasMetadata = true
		case IsTextureFile(name):
			textureCount++
		}
		return nil
	})
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("folder scan failed: %v", err)}
	}

	switch {
	case modelCount > 0:
		return Verdict{Valid: true, Reason: fmt.Sprintf("contains %d model files", modelCount)}
	case hasMetadata && textureCount > 0:
		return Verdict{Valid: true, Reason: fmt.Sprintf("contains metadata and %d texture files", textureCount)}
	case hasMetadata:
		return Verdict{Reason: "metadata without textures"}
	default:
		return Verdict{Reason: "no model, metadata, or texture content"}
	}
}
