package scene

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// buildGltf writes a single-triangle gltf asset with one red material. The
// geometry buffer is embedded as a data URI so the fixture is one file.
func buildGltf(t *testing.T) string {
	t.Helper()

	var buf []byte
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for _, p := range positions {
		for _, f := range p {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	for _, i := range []uint16{0, 1, 2} {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}

	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3",
     "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "materials": [{
    "name": "red",
    "emissiveFactor": [0.1, 0.2, 0.3],
    "pbrMetallicRoughness": {
      "baseColorFactor": [1.0, 0.0, 0.0, 0.5],
      "metallicFactor": 0.25,
      "roughnessFactor": 0.5
    }
  }],
  "meshes": [{
    "name": "tri",
    "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]
  }]
}`, len(buf), base64.StdEncoding.EncodeToString(buf))

	path := filepath.Join(t.TempDir(), "tri.gltf")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("writing gltf fixture: %v", err)
	}
	return path
}

func TestGltfImport(t *testing.T) {
	path := buildGltf(t)

	sc, err := GLTF{}.Import(path, 0)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(sc.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(sc.Meshes))
	}
	m := sc.Meshes[0]
	if m.Name != "tri" {
		t.Errorf("expected mesh name 'tri', got %q", m.Name)
	}
	if len(m.Positions) != 3 {
		t.Errorf("expected 3 positions, got %d", len(m.Positions))
	}
	if m.Positions[1] != [3]float32{1, 0, 0} {
		t.Errorf("unexpected second position %v", m.Positions[1])
	}
	if len(m.Faces) != 1 || len(m.Faces[0]) != 3 {
		t.Fatalf("expected one triangle face, got %v", m.Faces)
	}
	if m.MaterialIndex != 0 {
		t.Errorf("expected material index 0, got %d", m.MaterialIndex)
	}
	if m.HasNormals() {
		t.Error("expected no normals without FlagGenSmoothNormals")
	}
}

func TestGltfImportMaterial(t *testing.T) {
	sc, err := GLTF{}.Import(buildGltf(t), 0)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(sc.Materials) != 1 {
		t.Fatalf("expected 1 material, got %d", len(sc.Materials))
	}
	mat := sc.Materials[0]
	if mat.Name != "red" {
		t.Errorf("expected material name 'red', got %q", mat.Name)
	}
	if mat.Diffuse != [3]float32{1, 0, 0} {
		t.Errorf("expected diffuse (1,0,0), got %v", mat.Diffuse)
	}
	if mat.Opacity != 0.5 {
		t.Errorf("expected opacity 0.5 from base color alpha, got %f", mat.Opacity)
	}
	if mat.Emissive != [3]float32{0.1, 0.2, 0.3} {
		t.Errorf("unexpected emissive %v", mat.Emissive)
	}
	if mat.Specular != [3]float32{0.25, 0.25, 0.25} {
		t.Errorf("expected metallic grey specular, got %v", mat.Specular)
	}
	// Roughness 0.5 maps to shininess 20 so 10/Ns recovers it.
	if mat.Shininess != 20 {
		t.Errorf("expected shininess 20, got %f", mat.Shininess)
	}
	if mat.DiffuseMap != "" {
		t.Errorf("expected no diffuse map, got %q", mat.DiffuseMap)
	}
}

func TestGltfImportGeneratedNormals(t *testing.T) {
	sc, err := GLTF{}.Import(buildGltf(t), FlagGenSmoothNormals)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	m := sc.Meshes[0]
	if !m.HasNormals() {
		t.Fatal("expected generated normals")
	}
	if len(m.Normals) != len(m.Positions) {
		t.Fatalf("expected %d normals, got %d", len(m.Positions), len(m.Normals))
	}
	// The single triangle lies in the xy plane, its normal is +z.
	for i, n := range m.Normals {
		if n != [3]float32{0, 0, 1} {
			t.Errorf("vertex %d: expected normal (0,0,1), got %v", i, n)
		}
	}
}

func TestGltfImportMissingFile(t *testing.T) {
	_, err := GLTF{}.Import(filepath.Join(t.TempDir(), "gone.gltf"), 0)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, ok := err.(*ImportError); !ok {
		t.Errorf("expected *ImportError, got %T", err)
	}
}

func TestSmoothNormalsAreaWeighted(t *testing.T) {
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	faces := [][]uint32{{0, 1, 2}, {0, 1, 3}}

	normals := smoothNormals(positions, faces)
	if len(normals) != 4 {
		t.Fatalf("expected 4 normals, got %d", len(normals))
	}
	// Vertex 2 only belongs to the xy triangle.
	if normals[2] != [3]float32{0, 0, 1} {
		t.Errorf("expected (0,0,1) for vertex 2, got %v", normals[2])
	}
	// Shared vertices average both face normals.
	n := normals[0]
	if n[1] >= 0 || n[2] <= 0 {
		t.Errorf("expected averaged normal with -y and +z for vertex 0, got %v", n)
	}
}
