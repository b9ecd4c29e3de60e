package model

import "image"

// BufferUsage selects how a requested buffer will be bound.
type BufferUsage uint32

const (
	UsageVertex BufferUsage = iota
	UsageIndex
	UsageUniform
)

// Buffer is a GPU buffer handed out by a Device.
type Buffer interface {
	// Size returns the allocated byte size.
	Size() int
	// Write overwrites the buffer contents from the start. Only valid on
	// host-visible buffers, device-local buffers reject it.
	Write(data []byte) error
	Destroy()
}

// TextureArray is a layered device image with a full mip chain per layer.
type TextureArray interface {
	Layers() uint32
	// UploadLayer transfers the image into the given layer's mip level 0 and
	// regenerates the layer's mip chain. The image is scaled to the array's
	// side length on upload.
	UploadLayer(layer uint32, img *image.RGBA) error
	Destroy()
}

// Device is the resource manager the engine issues all GPU requests against.
// Implementations block until device completion before releasing any staging
// resources a call used.
type Device interface {
	// CreateDeviceLocalBuffer stages data and copies it into a new
	// device-local buffer.
	CreateDeviceLocalBuffer(usage BufferUsage, data []byte) (Buffer, error)
	// CreateMappedBuffer creates a host-visible, host-coherent buffer that
	// stays persistently mapped for whole-buffer rewrites.
	CreateMappedBuffer(usage BufferUsage, size int) (Buffer, error)
	// CreateTextureArray allocates a square layered image with
	// floor(log2(size))+1 mip levels.
	CreateTextureArray(size uint32, layers uint32) (TextureArray, error)
	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle()
}

// DrawIndexed is one indexed instanced draw command.
type DrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

// CommandStream receives the draw commands emitted for one frame.
type CommandStream interface {
	DrawIndexed(cmd DrawIndexed)
}
