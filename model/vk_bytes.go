package model

import (
	"bytes"
	"encoding/binary"
	"log"
)

// rawBytes serializes fixed-size data little-endian for upload. Only ever
// called on types binary.Write supports, a failure is a programmer error.
func rawBytes(data any) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		log.Panicf("Failed to serialize %T for upload: %v", data, err)
	}
	return buf.Bytes()
}

// materialTableBytes packs the loaded materials into a capacity-sized table,
// zero-padded past the last entry.
func (g *Group) materialTableBytes() []byte {
	table := make([]byte, g.MaterialCapacity*MaterialSize)
	for i := range g.materials {
		copy(table[i*MaterialSize:], rawBytes(&g.materials[i]))
	}
	return table
}

// instanceBytes packs the per-instance payloads in insertion order.
func (g *Group) instanceBytes() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(g.instances) * InstanceDataSize)
	for i := range g.instances {
		if err := binary.Write(buf, binary.LittleEndian, &g.instances[i].data); err != nil {
			log.Panicf("Failed to serialize instance %d for upload: %v", i, err)
		}
	}
	return buf.Bytes()
}
