package assets

import (
	"path/filepath"
	"strings"
)

var modelExtensions = map[string]struct{}{
	".fbx":   {},
	".obj":   {},
	".gltf":  {},
	".glb":   {},
	".stl":   {},
	".dae":   {},
	".abc":   {},
	".usd":   {},
	".usda":  {},
	".usdc":  {},
	".usdz":  {},
	".blend": {},
	".ply":   {},
}

var structuredDataExtensions = map[string]struct{}{
	".json": {},
	".xml":  {},
	".yaml": {},
	".yml":  {},
}

var textureExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tga":  {},
	".tif":  {},
	".tiff": {},
	".bmp":  {},
	".webp": {},
	".exr":  {},
	".hdr":  {},
}

func hasExtension(name string, set map[string]struct{}) bool {
	_, ok := set[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsModelFile reports whether name carries a recognized 3D model extension.
func IsModelFile(name string) bool {
	return hasExtension(name, modelExtensions)
}

// IsStructuredDataFile reports whether name carries a recognized
// structured-data extension.
func IsStructuredDataFile(name string) bool {
	return hasExtension(name, structuredDataExtensions)
}

// IsTextureFile reports whether name carries a recognized texture image
// extension.
func IsTextureFile(name string) bool {
	return hasExtension(name, textureExtensions)
}
