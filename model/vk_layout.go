// Package model implements the aggregation and batching engine: it merges any
// number of imported assets into one shared vertex buffer, one index buffer,
// one material table and one texture array, and compacts instance placements
// into batched indexed draws. All GPU work goes through the Device interface,
// the package itself never touches a physical device.
package model

// VertexComponent identifies one interleaved per-vertex attribute.
type VertexComponent uint32

const (
	ComponentPosition VertexComponent = iota
	ComponentNormal
	ComponentColor
	ComponentUV
	ComponentTangent
	ComponentBitangent
	ComponentDummyFloat
	ComponentDummyVec4
)

// Floats returns the number of float32 values the component occupies.
func (c VertexComponent) Floats() uint32 {
	switch c {
	case ComponentUV:
		return 2
	case ComponentDummyFloat:
		return 1
	case ComponentDummyVec4:
		return 4
	default:
		return 3
	}
}

// VertexLayout is the ordered attribute interleaving of the shared vertex
// buffer. It must not change once geometry has been appended, the recorded
// offsets would no longer address valid data.
type VertexLayout []VertexComponent

// Stride returns the byte size of one interleaved vertex.
func (l VertexLayout) Stride() uint32 {
	s := uint32(0)
	for _, c := range l {
		s += c.Floats()
	}
	return s * 4
}

// DefaultLayout matches the shaders shipped with the example viewer.
func DefaultLayout() VertexLayout {
	return VertexLayout{ComponentPosition, ComponentNormal, ComponentUV}
}
