package common

import (
	"fmt"
	"image"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"go.uber.org/zap"

	"github.com/jpbruyere/vkbase/logger"
	"github.com/jpbruyere/vkbase/model"
)

// Resources implements model.Device on top of a Device context. Every upload
// goes through a one-shot command buffer that blocks until the queue drains,
// so staging resources can be released as soon as a call returns.
type Resources struct {
	dc *Device
}

func NewResources(dc *Device) *Resources {
	return &Resources{dc: dc}
}

func (r *Resources) WaitIdle() {
	r.dc.WaitIdle()
}

func bufferUsageBits(u model.BufferUsage) vk.BufferUsageFlags {
	switch u {
	case model.UsageIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	case model.UsageUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	default:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
}

// deviceBuffer adapts a raw Buffer to model.Buffer. pMapped is nil for
// device-local buffers, which therefore reject Write.
type deviceBuffer struct {
	dc      *Device
	buf     *Buffer
	pMapped unsafe.Pointer
}

func (b *deviceBuffer) Size() int {
	return int(b.buf.Size)
}

func (b *deviceBuffer) Write(data []byte) error {
	if b.pMapped == nil {
		return fmt.Errorf("buffer is device-local, writes go through staging uploads")
	}
	if len(data) > int(b.buf.Size) {
		return fmt.Errorf("payload of %d bytes exceeds buffer size %d", len(data), b.buf.Size)
	}
	vk.Memcopy(b.pMapped, data)
	return nil
}

func (b *deviceBuffer) Destroy() {
	if b.pMapped != nil {
		vk.UnmapMemory(b.dc.D, b.buf.DeviceMem)
		b.pMapped = nil
	}
	DestroyBuffer(b.dc, b.buf)
}

// CreateDeviceLocalBuffer stages the payload in a host-visible buffer, copies
// it into a fresh device-local buffer and frees the staging buffer once the
// copy has completed on the device.
func (r *Resources) CreateDeviceLocalBuffer(usage model.BufferUsage, data []byte) (model.Buffer, error) {
	size := vk.DeviceSize(len(data))
	stg, err := CreateBuffer(
		r.dc,
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, err
	}
	defer DestroyBuffer(r.dc, stg)
	CopyToDeviceBuffer(r.dc, stg, data)

	dst, err := CreateBuffer(
		r.dc,
		size,
		bufferUsageBits(usage)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, err
	}
	if err := r.copyBuffer(stg, dst, size); err != nil {
		DestroyBuffer(r.dc, dst)
		return nil, err
	}
	return &deviceBuffer{dc: r.dc, buf: dst}, nil
}

// CreateMappedBuffer creates a host-visible, host-coherent buffer and keeps
// it mapped for its whole lifetime.
func (r *Resources) CreateMappedBuffer(usage model.BufferUsage, size int) (model.Buffer, error) {
	buf, err := CreateBuffer(
		r.dc,
		vk.DeviceSize(size),
		bufferUsageBits(usage),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, err
	}
	pData, err := VkMapMemory(r.dc.D, buf.DeviceMem, 0, buf.Size, 0)
	if err != nil {
		DestroyBuffer(r.dc, buf)
		return nil, fmt.Errorf("mapping buffer memory: %w", err)
	}
	return &deviceBuffer{dc: r.dc, buf: buf, pMapped: pData}, nil
}

// copyBuffer records a full-size buffer copy on a one-shot command buffer and
// blocks until the device has executed it.
func (r *Resources) copyBuffer(src *Buffer, dst *Buffer, size vk.DeviceSize) error {
	cmdBuf, err := VKBeginSingleTimeCommands(r.dc.D, r.dc.CmdPool)
	if err != nil {
		return fmt.Errorf("beginning copy commands: %w", err)
	}
	copyRegions := []vk.BufferCopy{
		{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	}
	vk.CmdCopyBuffer(cmdBuf, src.Handle, dst.Handle, 1, copyRegions)
	if err := VKEndSingleTimeCommands(r.dc.D, r.dc.CmdPool, r.dc.GraphicsQ, cmdBuf); err != nil {
		return fmt.Errorf("submitting copy commands: %w", err)
	}
	return nil
}

// textureArray implements model.TextureArray as one layered R8G8B8A8 image
// with a full mip chain, a 2D-array view and an anisotropic sampler.
type textureArray struct {
	dc        *Device
	img       vk.Image
	mem       vk.DeviceMemory
	View      vk.ImageView
	Sampler   vk.Sampler
	size      uint32
	layers    uint32
	mipLevels uint32
}

func (t *textureArray) Layers() uint32 {
	return t.layers
}

func (t *textureArray) Destroy() {
	vk.DestroySampler(t.dc.D, t.Sampler, nil)
	vk.DestroyImageView(t.dc.D, t.View, nil)
	vk.DestroyImage(t.dc.D, t.img, nil)
	vk.FreeMemory(t.dc.D, t.mem, nil)
}

// CreateTextureArray allocates the layered image, its array view and the
// shared sampler. Layers are undefined until uploaded.
func (r *Resources) CreateTextureArray(size uint32, layers uint32) (model.TextureArray, error) {
	mipLevels := uint32(math.Floor(math.Log2(float64(size)))) + 1

	img, mem, err := CreateImage(
		r.dc,
		size, size,
		mipLevels, layers,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit|vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, err
	}

	viewInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2dArray,
		Format:   vk.FormatR8g8b8a8Unorm,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: mipLevels,
			LayerCount: layers,
		},
	}
	view, err := VkCreateImageView(r.dc.D, viewInfo, nil)
	if err != nil {
		vk.DestroyImage(r.dc.D, img, nil)
		vk.FreeMemory(r.dc.D, mem, nil)
		return nil, fmt.Errorf("creating texture array view: %w", err)
	}

	samplerInfo := &vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    r.dc.PdProps.Limits.MaxSamplerAnisotropy,
		MaxLod:           float32(mipLevels),
		BorderColor:      vk.BorderColorFloatOpaqueWhite,
	}
	sampler, err := VkCreateSampler(r.dc.D, samplerInfo, nil)
	if err != nil {
		vk.DestroyImageView(r.dc.D, view, nil)
		vk.DestroyImage(r.dc.D, img, nil)
		vk.FreeMemory(r.dc.D, mem, nil)
		return nil, fmt.Errorf("creating texture array sampler: %w", err)
	}

	logger.Debug("texture array created",
		zap.Uint32("size", size),
		zap.Uint32("layers", layers),
		zap.Uint32("mipLevels", mipLevels))
	return &textureArray{
		dc:        r.dc,
		img:       img,
		mem:       mem,
		View:      view,
		Sampler:   sampler,
		size:      size,
		layers:    layers,
		mipLevels: mipLevels,
	}, nil
}

// UploadLayer stages the decoded pixels, blits them scaled into the layer's
// mip level 0 and regenerates the mip chain by successive 2x downsampling
// blits, each level moving through transfer layouts before ending up
// shader-read-only.
func (t *textureArray) UploadLayer(layer uint32, src *image.RGBA) error {
	w := uint32(src.Rect.Dx())
	h := uint32(src.Rect.Dy())

	stg, err := CreateBuffer(
		t.dc,
		vk.DeviceSize(len(src.Pix)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return err
	}
	defer DestroyBuffer(t.dc, stg)
	CopyToDeviceBuffer(t.dc, stg, src.Pix)

	// Source-sized scratch image: the buffer copy needs the native extent,
	// the scaling to the array side happens in the first blit.
	tmpImg, tmpMem, err := CreateImage(
		t.dc,
		w, h,
		1, 1,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit|vk.ImageUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return err
	}
	defer func() {
		vk.DestroyImage(t.dc.D, tmpImg, nil)
		vk.FreeMemory(t.dc.D, tmpMem, nil)
	}()

	cmd, err := VKBeginSingleTimeCommands(t.dc.D, t.dc.CmdPool)
	if err != nil {
		return fmt.Errorf("beginning upload commands: %w", err)
	}

	tmpRange := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
	recordImageBarrier(cmd, tmpImg, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, tmpRange)
	vk.CmdCopyBufferToImage(cmd, stg.Handle, tmpImg, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: w, Height: h, Depth: 1},
	}})
	recordImageBarrier(cmd, tmpImg, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, tmpRange)

	layerRange := vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount:     t.mipLevels,
		BaseArrayLayer: layer,
		LayerCount:     1,
	}
	recordImageBarrier(cmd, t.img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, layerRange)

	// Scaled blit into mip 0 of the target layer.
	vk.CmdBlitImage(cmd,
		tmpImg, vk.ImageLayoutTransferSrcOptimal,
		t.img, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			SrcOffsets: [2]vk.Offset3D{{}, {X: int32(w), Y: int32(h), Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseArrayLayer: layer,
				LayerCount:     1,
			},
			DstOffsets: [2]vk.Offset3D{{}, {X: int32(t.size), Y: int32(t.size), Z: 1}},
		}},
		vk.FilterLinear)

	t.recordMipChain(cmd, layer)

	if err := VKEndSingleTimeCommands(t.dc.D, t.dc.CmdPool, t.dc.GraphicsQ, cmd); err != nil {
		return fmt.Errorf("submitting upload of layer %d: %w", layer, err)
	}
	logger.Debug("texture layer uploaded",
		zap.Uint32("layer", layer),
		zap.Uint32("srcWidth", w),
		zap.Uint32("srcHeight", h))
	return nil
}

// recordMipChain downsamples level i-1 into level i for the given layer. On
// entry every level of the layer is transfer-destination; on exit the whole
// layer is shader-read-only.
func (t *textureArray) recordMipChain(cmd vk.CommandBuffer, layer uint32) {
	mipDim := func(level uint32) int32 {
		d := t.size >> level
		if d < 1 {
			d = 1
		}
		return int32(d)
	}
	levelRange := func(level uint32) vk.ImageSubresourceRange {
		return vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   level,
			LevelCount:     1,
			BaseArrayLayer: layer,
			LayerCount:     1,
		}
	}

	for i := uint32(1); i < t.mipLevels; i++ {
		recordImageBarrier(cmd, t.img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, levelRange(i-1))
		vk.CmdBlitImage(cmd,
			t.img, vk.ImageLayoutTransferSrcOptimal,
			t.img, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{{
				SrcSubresource: vk.ImageSubresourceLayers{
					AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:       i - 1,
					BaseArrayLayer: layer,
					LayerCount:     1,
				},
				SrcOffsets: [2]vk.Offset3D{{}, {X: mipDim(i - 1), Y: mipDim(i - 1), Z: 1}},
				DstSubresource: vk.ImageSubresourceLayers{
					AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:       i,
					BaseArrayLayer: layer,
					LayerCount:     1,
				},
				DstOffsets: [2]vk.Offset3D{{}, {X: mipDim(i), Y: mipDim(i), Z: 1}},
			}},
			vk.FilterLinear)
		recordImageBarrier(cmd, t.img, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, levelRange(i-1))
	}
	recordImageBarrier(cmd, t.img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, levelRange(t.mipLevels-1))
}

// recordImageBarrier records a layout transition with access masks and
// pipeline stages derived from the layout pair.
func recordImageBarrier(cmd vk.CommandBuffer, img vk.Image, oldLayout, newLayout vk.ImageLayout, sub vk.ImageSubresourceRange) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    sub,
	}
	srcStage := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	dstStage := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)

	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutTransferSrcOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferSrcOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	}
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// CommandBufferStream records emitted draws into a Vulkan command buffer.
type CommandBufferStream struct {
	Cmd vk.CommandBuffer
}

func (s *CommandBufferStream) DrawIndexed(d model.DrawIndexed) {
	vk.CmdDrawIndexed(s.Cmd, d.IndexCount, d.InstanceCount, d.FirstIndex, d.VertexOffset, d.FirstInstance)
}
