// Package scene defines the in-memory representation of an imported asset
// file (meshes, materials, texture references) and the importers producing
// it. The aggregation engine in package model consumes these structures only
// and never touches the underlying file formats.
package scene

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ImportFlags requests post-processing steps from an importer. Back ends
// honor the flags they can express for their format and ignore the rest
// (e.g. glTF data is always triangulated already).
type ImportFlags uint32

const (
	FlagTriangulate ImportFlags = 1 << iota
	FlagJoinIdenticalVertices
	FlagCalcTangentSpace
	FlagGenSmoothNormals
	FlagMakeLeftHanded
	FlagOptimizeMeshes
)

// DefaultFlags enables every post-processing step.
const DefaultFlags = FlagTriangulate | FlagJoinIdenticalVertices | FlagCalcTangentSpace |
	FlagGenSmoothNormals | FlagMakeLeftHanded | FlagOptimizeMeshes

// Mesh is one sub-mesh of an imported asset. Positions are mandatory; all
// other per-vertex attributes are optional and, when present, run parallel
// to Positions.
type Mesh struct {
	Name       string
	Positions  [][3]float32
	Normals    [][3]float32
	UVs        [][2]float32
	Tangents   [][3]float32
	Bitangents [][3]float32

	// Faces lists per-face vertex indices into the mesh's own vertex range.
	// Consumers keep only faces with exactly three indices.
	Faces [][]uint32

	// MaterialIndex references Scene.Materials.
	MaterialIndex int
}

// HasNormals reports whether the mesh carries per-vertex normals.
func (m *Mesh) HasNormals() bool { return len(m.Normals) > 0 }

// HasUVs reports whether the mesh carries texture coordinates.
func (m *Mesh) HasUVs() bool { return len(m.UVs) > 0 }

// HasTangents reports whether the mesh carries per-vertex tangents.
func (m *Mesh) HasTangents() bool { return len(m.Tangents) > 0 }

// HasBitangents reports whether the mesh carries per-vertex bitangents.
func (m *Mesh) HasBitangents() bool { return len(m.Bitangents) > 0 }

// Material is the importer-level material description, before packing into
// the shared GPU material table.
type Material struct {
	Name      string
	Ambient   [3]float32
	Diffuse   [3]float32
	Specular  [3]float32
	Emissive  [3]float32
	Shininess float32
	Opacity   float32

	// DiffuseMap is the resolved path of the diffuse texture, empty when the
	// material is untextured.
	DiffuseMap string
}

// Scene is the complete parsed content of one asset file. A scene always
// carries at least one material so every mesh resolves to a valid material
// index.
type Scene struct {
	Meshes    []Mesh
	Materials []Material
}

// Importer turns an asset file into a Scene.
type Importer interface {
	Import(path string, flags ImportFlags) (*Scene, error)
}

// ImportError reports an asset file the importer could not parse. The
// aggregation engine guarantees no shared state is touched when AddModel
// returns one.
type ImportError struct {
	Path string
	Diag string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %q: %s", e.Path, e.Diag)
}

// defaultMaterial is appended to scenes whose format carries no material
// information at all.
func defaultMaterial() Material {
	return Material{
		Name:      "default",
		Diffuse:   [3]float32{0.8, 0.8, 0.8},
		Specular:  [3]float32{0.5, 0.5, 0.5},
		Shininess: 32,
		Opacity:   1,
	}
}

// Import loads the given file with the back end matching its extension.
func Import(path string, flags ImportFlags) (*Scene, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return GLTF{}.Import(path, flags)
	case ".stl":
		return STL{}.Import(path, flags)
	default:
		return nil, &ImportError{Path: path, Diag: "unsupported file format"}
	}
}
