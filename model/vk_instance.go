package model

import "github.com/go-gl/mathgl/mgl32"

// InstanceDataSize is the packed byte size of one InstanceData record.
const InstanceDataSize = 68

// InstanceData is the per-instance payload uploaded to the instance buffer.
type InstanceData struct {
	MaterialIndex uint32
	Transform     mgl32.Mat4
}

type drawKey struct {
	model int
	part  int
}

// instance pairs a draw key with its payload in a single record, so the
// index correspondence between the two can not drift.
type instance struct {
	key  drawKey
	data InstanceData
}

// AddInstance appends one placement of (model, part) with an explicit
// payload. Returns the index of the appended instance.
func (g *Group) AddInstance(model, part int, data InstanceData) int {
	start := len(g.instances)
	g.instances = append(g.instances, instance{key: drawKey{model, part}, data: data})
	return start
}

// AddInstances appends a run of placements for the same (model, part).
// Returns the starting index of the run.
func (g *Group) AddInstances(model, part int, datas []InstanceData) int {
	start := len(g.instances)
	key := drawKey{model, part}
	for _, d := range datas {
		g.instances = append(g.instances, instance{key: key, data: d})
	}
	return start
}

// AddInstanceTransform appends one placement using the part's own material,
// the transform only overrides placement.
func (g *Group) AddInstanceTransform(model, part int, transform mgl32.Mat4) int {
	return g.AddInstance(model, part, InstanceData{
		MaterialIndex: g.Models[model].Parts[part].MaterialIdx,
		Transform:     transform,
	})
}

// InstanceCount returns the number of placements currently held.
func (g *Group) InstanceCount() int { return len(g.instances) }

// ClearInstances drops all placements. The instance buffer is untouched
// until the next BuildInstanceBuffer.
func (g *Group) ClearInstances() {
	g.instances = g.instances[:0]
}

// EmitDrawCalls walks the instance list once and emits one indexed instanced
// draw per maximal contiguous (model, part) run. The list is not sorted on
// the caller's behalf, pre-sort instances to maximize batching. Returns the
// number of draws emitted; an empty list emits none.
func (g *Group) EmitDrawCalls(cs CommandStream) int {
	if len(g.instances) == 0 {
		return 0
	}
	draws := 0
	cur := g.instances[0].key
	start := 0
	flush := func(end int) {
		part := g.Models[cur.model].Parts[cur.part]
		cs.DrawIndexed(DrawIndexed{
			IndexCount:    part.IndexCount,
			InstanceCount: uint32(end - start),
			FirstIndex:    part.IndexBase,
			VertexOffset:  int32(part.VertexBase),
			FirstInstance: uint32(start),
		})
		draws++
	}
	for i := 1; i < len(g.instances); i++ {
		if g.instances[i].key != cur {
			flush(i)
			cur = g.instances[i].key
			start = i
		}
	}
	flush(len(g.instances))
	return draws
}
