package model

import (
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/jpbruyere/vkbase/logger"
	"github.com/jpbruyere/vkbase/scene"
)

const defaultTexSize = 1024
const defaultMaterialCapacity = 256

// Group aggregates any number of assets into shared GPU resources. Load
// assets with AddModel, place them with the AddInstance variants, upload with
// Prepare, then emit batched draws each frame with EmitDrawCalls. All
// operations are synchronous and single-threaded.
type Group struct {
	dev Device

	// Layout is the vertex interleaving. Fixed once the first asset loads.
	Layout VertexLayout
	// TexSize is the side length of every texture array layer.
	TexSize uint32
	// MaterialCapacity is the fixed entry count of the material table.
	MaterialCapacity int

	Models    []*Model
	materials []Material
	// texRefs holds each material's diffuse path, resolved to a registry
	// index during Prepare. Parallel to materials.
	texRefs []string

	texturePaths []string
	textureIndex map[string]uint32

	vertices    []float32
	indices     []uint32
	vertexCount uint32
	indexCount  uint32

	instances []instance

	VertexBuffer   Buffer
	IndexBuffer    Buffer
	MaterialBuffer Buffer
	InstanceBuffer Buffer
	Textures       TextureArray
}

// NewGroup creates an empty group backed by the given device.
func NewGroup(dev Device) *Group {
	return &Group{
		dev:              dev,
		Layout:           DefaultLayout(),
		TexSize:          defaultTexSize,
		MaterialCapacity: defaultMaterialCapacity,
	}
}

// AddModel imports the asset file and aggregates it into the shared buffers.
// On import failure no shared state is touched. Returns the model index.
func (g *Group) AddModel(path string, flags scene.ImportFlags) (int, error) {
	sc, err := scene.Import(path, flags)
	if err != nil {
		return -1, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := g.AddScene(name, sc)
	m := g.Models[idx]
	logger.Debug("model loaded",
		zap.String("name", name),
		zap.Int("parts", len(m.Parts)),
		zap.Int("materials", len(sc.Materials)),
		zap.Uint32("vertices", g.vertexCount),
		zap.Uint32("indices", g.indexCount))
	return idx, nil
}

// AddScene aggregates an already-parsed scene. The asset's material indices
// are offset by the material count recorded before any of its meshes are
// processed; part bases come from the global counters as each mesh lands.
func (g *Group) AddScene(name string, sc *scene.Scene) int {
	materialOffset := uint32(len(g.materials))
	for _, sm := range sc.Materials {
		g.materials = append(g.materials, NewMaterial(sm))
		g.texRefs = append(g.texRefs, sm.DiffuseMap)
	}

	m := &Model{Name: name, Dim: newDimension()}
	for mi := range sc.Meshes {
		mesh := &sc.Meshes[mi]
		part := ModelPart{
			VertexBase:  g.vertexCount,
			IndexBase:   g.indexCount,
			MaterialIdx: materialOffset + uint32(mesh.MaterialIndex),
		}
		g.appendVertices(mesh, sc.Materials[mesh.MaterialIndex].Diffuse, &m.Dim)
		part.VertexCount = uint32(len(mesh.Positions))
		g.vertexCount += part.VertexCount

		// Faces keep their mesh-local indices; VertexBase is applied at draw
		// time as the indexed draw's vertex offset.
		for _, f := range mesh.Faces {
			if len(f) != 3 {
				continue
			}
			g.indices = append(g.indices, f[0], f[1], f[2])
			part.IndexCount += 3
		}
		g.indexCount += part.IndexCount
		m.Parts = append(m.Parts, part)
	}
	m.Dim.finalize()

	g.Models = append(g.Models, m)
	return len(g.Models) - 1
}

// appendVertices emits one interleaved vertex per mesh position, in Layout
// order. Position and normal Y are negated for the left-handed convention;
// the bounding box folds the unflipped position.
func (g *Group) appendVertices(mesh *scene.Mesh, diffuse [3]float32, dim *Dimension) {
	for vi := range mesh.Positions {
		p := mesh.Positions[vi]
		dim.fold(mgl32.Vec3{p[0], p[1], p[2]})
		for _, c := range g.Layout {
			switch c {
			case ComponentPosition:
				g.vertices = append(g.vertices, p[0], -p[1], p[2])
			case ComponentNormal:
				if mesh.HasNormals() {
					n := mesh.Normals[vi]
					g.vertices = append(g.vertices, n[0], -n[1], n[2])
				} else {
					g.vertices = append(g.vertices, 0, 0, 0)
				}
			case ComponentColor:
				g.vertices = append(g.vertices, diffuse[0], diffuse[1], diffuse[2])
			case ComponentUV:
				if mesh.HasUVs() {
					g.vertices = append(g.vertices, mesh.UVs[vi][0], mesh.UVs[vi][1])
				} else {
					g.vertices = append(g.vertices, 0, 0)
				}
			case ComponentTangent:
				if mesh.HasTangents() {
					tn := mesh.Tangents[vi]
					g.vertices = append(g.vertices, tn[0], tn[1], tn[2])
				} else {
					g.vertices = append(g.vertices, 0, 0, 0)
				}
			case ComponentBitangent:
				if mesh.HasBitangents() {
					bt := mesh.Bitangents[vi]
					g.vertices = append(g.vertices, bt[0], bt[1], bt[2])
				} else {
					g.vertices = append(g.vertices, 0, 0, 0)
				}
			case ComponentDummyFloat:
				g.vertices = append(g.vertices, 0)
			case ComponentDummyVec4:
				g.vertices = append(g.vertices, 0, 0, 0, 0)
			}
		}
	}
}

// VertexCount returns the total vertex count across all loaded assets.
func (g *Group) VertexCount() uint32 { return g.vertexCount }

// IndexCount returns the total index count across all loaded assets.
func (g *Group) IndexCount() uint32 { return g.indexCount }

// Materials returns the shared material table. Prior to Prepare the map
// indices are unresolved.
func (g *Group) Materials() []Material { return g.materials }

// TexturePaths returns the texture registry in first-seen order. Empty before
// Prepare has scanned the loaded materials.
func (g *Group) TexturePaths() []string { return g.texturePaths }
