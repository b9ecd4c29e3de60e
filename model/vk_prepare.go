package model

import (
	"fmt"

	"go.uber.org/zap"
	stbi "neilpa.me/go-stbi"

	"github.com/jpbruyere/vkbase/logger"
)

// Prepare resolves the texture registry and uploads every shared resource.
// Call it once, after all assets are aggregated: rebuilding the array per
// asset would recreate the GPU image over and over. The material capacity is
// checked before any upload is attempted.
func (g *Group) Prepare() error {
	g.buildTextureRegistry()

	if len(g.materials) > g.MaterialCapacity {
		return fmt.Errorf("%w: %d materials, capacity %d",
			ErrCapacityExceeded, len(g.materials), g.MaterialCapacity)
	}

	var err error
	g.VertexBuffer, err = g.dev.CreateDeviceLocalBuffer(UsageVertex, rawBytes(g.vertices))
	if err != nil {
		return fmt.Errorf("uploading vertex buffer: %w", err)
	}
	g.IndexBuffer, err = g.dev.CreateDeviceLocalBuffer(UsageIndex, rawBytes(g.indices))
	if err != nil {
		return fmt.Errorf("uploading index buffer: %w", err)
	}
	logger.Debug("geometry uploaded",
		zap.Int("vertexBytes", g.VertexBuffer.Size()),
		zap.Int("indexBytes", g.IndexBuffer.Size()))

	if err := g.buildTextureArray(); err != nil {
		return err
	}

	g.MaterialBuffer, err = g.dev.CreateMappedBuffer(UsageUniform, g.MaterialCapacity*MaterialSize)
	if err != nil {
		return fmt.Errorf("creating material buffer: %w", err)
	}
	if err := g.MaterialBuffer.Write(g.materialTableBytes()); err != nil {
		return fmt.Errorf("writing material buffer: %w", err)
	}

	if len(g.instances) > 0 {
		if err := g.BuildInstanceBuffer(); err != nil {
			return err
		}
	}

	logger.Info("group prepared",
		zap.Int("models", len(g.Models)),
		zap.Int("materials", len(g.materials)),
		zap.Int("textures", len(g.texturePaths)),
		zap.Int("instances", len(g.instances)))
	return nil
}

// buildTextureRegistry scans every loaded material in order and assigns each
// distinct diffuse path its first-seen registry index, then rewrites the
// material map slots. The same path always resolves to the same index, even
// across assets.
func (g *Group) buildTextureRegistry() {
	g.texturePaths = g.texturePaths[:0]
	g.textureIndex = make(map[string]uint32)
	for _, p := range g.texRefs {
		if p == "" {
			continue
		}
		if _, ok := g.textureIndex[p]; !ok {
			g.textureIndex[p] = uint32(len(g.texturePaths))
			g.texturePaths = append(g.texturePaths, p)
			logger.Debug("texture registered",
				zap.String("path", p),
				zap.Uint32("layer", g.textureIndex[p]))
		}
	}
	for i := range g.materials {
		if p := g.texRefs[i]; p != "" {
			g.materials[i].Md = g.textureIndex[p]
		} else {
			g.materials[i].Md = NoTexture
		}
	}
}

// buildTextureArray decodes every registry entry into its layer. Groups with
// no textured material are valid, no array is created for them. A decode
// failure aborts the whole build.
func (g *Group) buildTextureArray() error {
	if len(g.texturePaths) == 0 {
		return nil
	}
	arr, err := g.dev.CreateTextureArray(g.TexSize, uint32(len(g.texturePaths)))
	if err != nil {
		return fmt.Errorf("creating texture array: %w", err)
	}
	for layer, path := range g.texturePaths {
		img, err := stbi.Load(path)
		if err != nil {
			arr.Destroy()
			return &DecodeError{Path: path, Layer: uint32(layer), Err: err}
		}
		if err := arr.UploadLayer(uint32(layer), img); err != nil {
			arr.Destroy()
			return fmt.Errorf("uploading texture layer %d (%s): %w", layer, path, err)
		}
	}
	g.Textures = arr
	return nil
}

// BuildInstanceBuffer uploads the whole instance sequence to a fresh mapped
// buffer. An existing buffer may still be referenced by in-flight draws, so
// the device is drained before it is released. Rebuilds are infrequent
// whole-buffer operations, there is no incremental path.
func (g *Group) BuildInstanceBuffer() error {
	if g.InstanceBuffer != nil {
		g.dev.WaitIdle()
		g.InstanceBuffer.Destroy()
		g.InstanceBuffer = nil
	}
	buf, err := g.dev.CreateMappedBuffer(UsageVertex, len(g.instances)*InstanceDataSize)
	if err != nil {
		return fmt.Errorf("creating instance buffer: %w", err)
	}
	if err := buf.Write(g.instanceBytes()); err != nil {
		buf.Destroy()
		return fmt.Errorf("writing instance buffer: %w", err)
	}
	g.InstanceBuffer = buf
	return nil
}

// UpdateInstanceBuffer rewrites the mapped instance buffer in place. The
// instance count must not have changed since the last build.
func (g *Group) UpdateInstanceBuffer() error {
	if g.InstanceBuffer == nil {
		return fmt.Errorf("instance buffer not built")
	}
	return g.InstanceBuffer.Write(g.instanceBytes())
}

// UpdateMaterialBuffer rewrites the whole mapped material table in place,
// e.g. after live material tweaks. There is no per-entry update.
func (g *Group) UpdateMaterialBuffer() error {
	if g.MaterialBuffer == nil {
		return fmt.Errorf("material buffer not built")
	}
	return g.MaterialBuffer.Write(g.materialTableBytes())
}

// Destroy drains the device and releases every GPU resource the group owns.
func (g *Group) Destroy() {
	g.dev.WaitIdle()
	for _, b := range []Buffer{g.VertexBuffer, g.IndexBuffer, g.MaterialBuffer, g.InstanceBuffer} {
		if b != nil {
			b.Destroy()
		}
	}
	g.VertexBuffer, g.IndexBuffer, g.MaterialBuffer, g.InstanceBuffer = nil, nil, nil, nil
	if g.Textures != nil {
		g.Textures.Destroy()
		g.Textures = nil
	}
}
