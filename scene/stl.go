package scene

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const stlHeaderSize = 80
const stlTriangleSize = 50

// STL imports binary STL files. The format carries no materials or texture
// coordinates, so the scene gets a single default material and per-vertex
// face normals.
type STL struct{}

// Import reads the file as binary STL and produces a single-mesh scene.
func (STL) Import(path string, flags ImportFlags) (*Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ImportError{Path: path, Diag: err.Error()}
	}
	if len(b) < stlHeaderSize+4 {
		return nil, &ImportError{Path: path, Diag: "file too short for binary stl header"}
	}
	triangleCnt := binary.LittleEndian.Uint32(b[stlHeaderSize : stlHeaderSize+4])
	body := b[stlHeaderSize+4:]
	if uint64(len(body)) < uint64(triangleCnt)*stlTriangleSize {
		return nil, &ImportError{
			Path: path,
			Diag: fmt.Sprintf("truncated triangle data, header announces %d triangles", triangleCnt),
		}
	}

	m := Mesh{Name: "stl"}
	if flags&FlagJoinIdenticalVertices != 0 {
		stlMeshJoined(&m, body, triangleCnt)
	} else {
		stlMesh(&m, body, triangleCnt)
	}

	return &Scene{
		Meshes:    []Mesh{m},
		Materials: []Material{defaultMaterial()},
	}, nil
}

// stlMesh emits three unshared vertices per triangle, matching the file
// layout one to one.
func stlMesh(m *Mesh, body []byte, triangleCnt uint32) {
	m.Positions = make([][3]float32, 0, triangleCnt*3)
	m.Normals = make([][3]float32, 0, triangleCnt*3)
	m.Faces = make([][]uint32, 0, triangleCnt)

	idx := uint32(0)
	for t := uint32(0); t < triangleCnt; t++ {
		rec := body[t*stlTriangleSize:]
		normal := stlVec3(rec[0:12])
		for c := 0; c < 3; c++ {
			m.Positions = append(m.Positions, stlVec3(rec[12+c*12:24+c*12]))
			m.Normals = append(m.Normals, normal)
		}
		m.Faces = append(m.Faces, []uint32{idx, idx + 1, idx + 2})
		idx += 3
	}
}

// stlMeshJoined deduplicates exactly coincident corners. Normals of joined
// corners are averaged, which smooths shared edges the same way a generated
// smooth normal pass would.
func stlMeshJoined(m *Mesh, body []byte, triangleCnt uint32) {
	seen := make(map[[3]float32]uint32, triangleCnt)
	m.Faces = make([][]uint32, 0, triangleCnt)

	for t := uint32(0); t < triangleCnt; t++ {
		rec := body[t*stlTriangleSize:]
		normal := stlVec3(rec[0:12])
		face := make([]uint32, 3)
		for c := 0; c < 3; c++ {
			pos := stlVec3(rec[12+c*12 : 24+c*12])
			vi, ok := seen[pos]
			if !ok {
				vi = uint32(len(m.Positions))
				seen[pos] = vi
				m.Positions = append(m.Positions, pos)
				m.Normals = append(m.Normals, normal)
			} else {
				m.Normals[vi] = add(m.Normals[vi], normal)
			}
			face[c] = vi
		}
		m.Faces = append(m.Faces, face)
	}
	for i := range m.Normals {
		m.Normals[i] = normalized(m.Normals[i])
	}
}

func stlVec3(b []byte) [3]float32 {
	return [3]float32{stlFloat32(b[0:4]), stlFloat32(b[4:8]), stlFloat32(b[8:12])}
}

func stlFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
