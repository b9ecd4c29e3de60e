package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ModelPart addresses one drawable sub-mesh inside the shared buffers. All
// offsets are global across every loaded asset, never per-asset. Parts are
// immutable once their asset finishes loading.
type ModelPart struct {
	VertexBase  uint32
	VertexCount uint32
	IndexBase   uint32
	IndexCount  uint32
	MaterialIdx uint32
}

// Dimension is the axis-aligned bounding box of one model, folded from every
// vertex position of every part.
type Dimension struct {
	Min  mgl32.Vec3
	Max  mgl32.Vec3
	Size mgl32.Vec3
}

func newDimension() Dimension {
	return Dimension{
		Min: mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

func (d *Dimension) fold(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < d.Min[i] {
			d.Min[i] = p[i]
		}
		if p[i] > d.Max[i] {
			d.Max[i] = p[i]
		}
	}
}

func (d *Dimension) finalize() {
	if d.Min[0] > d.Max[0] {
		// no vertices were folded
		d.Min = mgl32.Vec3{}
		d.Max = mgl32.Vec3{}
	}
	d.Size = d.Max.Sub(d.Min)
}

// Model is one loaded asset: its parts and bounding box. Created at the end
// of a single AddModel call and never mutated afterward.
type Model struct {
	Name  string
	Parts []ModelPart
	Dim   Dimension
}
