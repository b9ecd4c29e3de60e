package scene

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// GLTF imports glTF 2.0 assets (.gltf and .glb) via qmuntal/gltf. Primitives
// are read per mesh; non-triangle primitives are skipped since the shared
// index buffer is triangle-only.
type GLTF struct{}

// Import parses the file and converts every triangle primitive into a Mesh.
func (GLTF) Import(path string, flags ImportFlags) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, &ImportError{Path: path, Diag: err.Error()}
	}

	sc := &Scene{}
	dir := filepath.Dir(path)
	for _, m := range doc.Materials {
		sc.Materials = append(sc.Materials, gltfMaterial(doc, m, dir))
	}
	if len(sc.Materials) == 0 {
		sc.Materials = append(sc.Materials, defaultMaterial())
	}

	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			out, err := gltfPrimitive(doc, prim, flags)
			if err != nil {
				return nil, &ImportError{Path: path, Diag: err.Error()}
			}
			out.Name = mesh.Name
			if prim.Material != nil {
				out.MaterialIndex = int(*prim.Material)
			}
			sc.Meshes = append(sc.Meshes, out)
		}
	}
	return sc, nil
}

func gltfPrimitive(doc *gltf.Document, prim *gltf.Primitive, flags ImportFlags) (Mesh, error) {
	var m Mesh

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return m, &attrError{gltf.POSITION}
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return m, err
	}
	m.Positions = positions

	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[normIdx], nil)
		if err != nil {
			return m, err
		}
		m.Normals = normals
	}
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil)
		if err != nil {
			return m, err
		}
		m.UVs = uvs
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return m, err
		}
		m.Faces = facesFromIndices(indices)
	} else {
		seq := make([]uint32, len(positions))
		for i := range seq {
			seq[i] = uint32(i)
		}
		m.Faces = facesFromIndices(seq)
	}

	if !m.HasNormals() && flags&FlagGenSmoothNormals != 0 {
		m.Normals = smoothNormals(m.Positions, m.Faces)
	}

	if flags&FlagCalcTangentSpace != 0 && m.HasNormals() {
		if tanIdx, ok := prim.Attributes[gltf.TANGENT]; ok {
			tangents, err := modeler.ReadTangent(doc, doc.Accessors[tanIdx], nil)
			if err != nil {
				return m, err
			}
			m.Tangents = make([][3]float32, len(tangents))
			m.Bitangents = make([][3]float32, len(tangents))
			for i, t := range tangents {
				m.Tangents[i] = [3]float32{t[0], t[1], t[2]}
				// w stores the handedness of the tangent basis
				m.Bitangents[i] = scaled(cross(m.Normals[i], m.Tangents[i]), t[3])
			}
		}
	}
	return m, nil
}

type attrError struct{ attr string }

func (e *attrError) Error() string { return "primitive has no " + e.attr + " attribute" }

func facesFromIndices(indices []uint32) [][]uint32 {
	faces := make([][]uint32, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		faces = append(faces, []uint32{indices[i], indices[i+1], indices[i+2]})
	}
	return faces
}

// smoothNormals averages the area-weighted face normals touching each vertex.
func smoothNormals(positions [][3]float32, faces [][]uint32) [][3]float32 {
	normals := make([][3]float32, len(positions))
	for _, f := range faces {
		if len(f) != 3 {
			continue
		}
		a, b, c := positions[f[0]], positions[f[1]], positions[f[2]]
		n := cross(sub(b, a), sub(c, a))
		for _, vi := range f {
			normals[vi] = add(normals[vi], n)
		}
	}
	for i := range normals {
		normals[i] = normalized(normals[i])
	}
	return normals
}

func gltfMaterial(doc *gltf.Document, m *gltf.Material, dir string) Material {
	out := Material{
		Name:    m.Name,
		Diffuse: [3]float32{1, 1, 1},
		Opacity: 1,
	}
	out.Emissive = [3]float32{
		float32(m.EmissiveFactor[0]),
		float32(m.EmissiveFactor[1]),
		float32(m.EmissiveFactor[2]),
	}

	pbr := m.PBRMetallicRoughness
	if pbr == nil {
		return out
	}
	if pbr.BaseColorFactor != nil {
		bc := *pbr.BaseColorFactor
		out.Diffuse = [3]float32{float32(bc[0]), float32(bc[1]), float32(bc[2])}
		out.Opacity = float32(bc[3])
	}
	metallic := 1.0
	if pbr.MetallicFactor != nil {
		metallic = *pbr.MetallicFactor
	}
	out.Specular = [3]float32{float32(metallic), float32(metallic), float32(metallic)}

	roughness := 1.0
	if pbr.RoughnessFactor != nil {
		roughness = *pbr.RoughnessFactor
	}
	// Shininess is chosen so the table packing's 10/Ns mapping recovers the
	// glTF roughness factor.
	if roughness > 0 {
		out.Shininess = float32(10.0 / roughness)
	} else {
		out.Shininess = 1000
	}

	if pbr.BaseColorTexture != nil {
		tex := doc.Textures[int(pbr.BaseColorTexture.Index)]
		if tex.Source != nil {
			uri := doc.Images[int(*tex.Source)].URI
			if uri != "" && !strings.HasPrefix(uri, "data:") {
				out.DiffuseMap = filepath.Join(dir, filepath.FromSlash(uri))
			}
		}
	}
	return out
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func add(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func scaled(v [3]float32, s float32) [3]float32 {
	return [3]float32{v[0] * s, v[1] * s, v[2] * s}
}

func normalized(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
