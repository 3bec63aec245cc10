package assets

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TypeUnknown is the asset type reported when no metadata names one.
const TypeUnknown = "unknown"

// Metadata is the resolved display name and type of an asset folder.
type Metadata struct {
	Name string
	Type string
}

var preferredMetadataNames = []string{"asset.json", "metadata.json"}

var nameKeys = []string{"name", "title", "assetName"}
var typeKeys = []string{"type", "assetType", "category"}

// ResolveMetadata determines an asset's name and type from a metadata file
// inside folder, preferring asset.json and metadata.json over any other
// JSON file found in the subtree. Missing or unreadable metadata falls
// back to a title-cased folder name and the unknown type; resolution
// itself never fails.
func ResolveMetadata(folder string) Metadata {
	meta := Metadata{
		Name: fallbackName(folder),
		Type: TypeUnknown,
	}

	path := locateMetadataFile(folder)
	if path == "" {
		return meta
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return meta
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return meta
	}

	if name := firstString(fields, nameKeys); name != "" {
		meta.Name = name
	}
	if assetType := firstString(fields, typeKeys); assetType != "" {
		meta.Type = strings.ToLower(assetType)
	}
	return meta
}

func locateMetadataFile(folder string) string {
	for _, name := range preferredMetadataNames {
		candidate := filepath.Join(folder, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
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
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func firstString(fields map[string]any, keys []string) string {
	for _, key := range keys {
		if value, ok := fields[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// fallbackName turns a folder path into a presentable asset name: the base
// name with separators collapsed to spaces and title casing applied.
func fallbackName(folder string) string {
	base := filepath.Base(filepath.Clean(folder))
	if base == "." || base == string(filepath.Separator) {
		return "Unknown Asset"
	}
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	name := strings.TrimSpace(cleaned.String())
	if name == "" {
		return "Unknown Asset"
	}
	return cases.Title(language.Und).String(name)
}
