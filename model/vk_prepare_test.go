package model

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jpbruyere/vkbase/scene"
)

type fakeBuffer struct {
	usage    BufferUsage
	size     int
	mapped   bool
	writes   [][]byte
	destroys int
}

func (b *fakeBuffer) Size() int { return b.size }

func (b *fakeBuffer) Write(data []byte) error {
	if !b.mapped {
		return errors.New("write to device-local buffer")
	}
	b.writes = append(b.writes, data)
	return nil
}

func (b *fakeBuffer) Destroy() { b.destroys++ }

type fakeArray struct {
	layers   uint32
	uploads  []uint32
	destroys int
}

func (a *fakeArray) Layers() uint32 { return a.layers }

func (a *fakeArray) UploadLayer(layer uint32, img *image.RGBA) error {
	a.uploads = append(a.uploads, layer)
	return nil
}

func (a *fakeArray) Destroy() { a.destroys++ }

type fakeDevice struct {
	buffers   []*fakeBuffer
	arrays    []*fakeArray
	waits     int
	failArray bool
}

func (d *fakeDevice) CreateDeviceLocalBuffer(usage BufferUsage, data []byte) (Buffer, error) {
	b := &fakeBuffer{usage: usage, size: len(data)}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CreateMappedBuffer(usage BufferUsage, size int) (Buffer, error) {
	b := &fakeBuffer{usage: usage, size: size, mapped: true}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CreateTextureArray(size uint32, layers uint32) (TextureArray, error) {
	if d.failArray {
		return nil, errors.New("out of device memory")
	}
	a := &fakeArray{layers: layers}
	d.arrays = append(d.arrays, a)
	return a, nil
}

func (d *fakeDevice) WaitIdle() { d.waits++ }

// writePng writes a tiny valid image the texture build can decode.
func writePng(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPrepareTextureRegistry(t *testing.T) {
	dir := t.TempDir()
	shared := writePng(t, dir, "shared.png")
	other := writePng(t, dir, "other.png")

	dev := &fakeDevice{}
	g := NewGroup(dev)
	// Two assets reference the same texture, one references another.
	g.AddScene("a", triScene(1, shared))
	g.AddScene("b", triScene(1, shared))
	g.AddScene("c", triScene(1, other))

	if err := g.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	paths := g.TexturePaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 registry entries, got %d", len(paths))
	}
	if paths[0] != shared || paths[1] != other {
		t.Errorf("expected first-seen order [shared, other], got %v", paths)
	}

	mats := g.Materials()
	if mats[0].Md != 0 || mats[1].Md != 0 {
		t.Errorf("expected both shared-path materials to resolve to layer 0, got %d and %d",
			mats[0].Md, mats[1].Md)
	}
	if mats[2].Md != 1 {
		t.Errorf("expected third material to resolve to layer 1, got %d", mats[2].Md)
	}

	if len(dev.arrays) != 1 {
		t.Fatalf("expected one texture array, got %d", len(dev.arrays))
	}
	arr := dev.arrays[0]
	if arr.layers != 2 {
		t.Errorf("expected 2 layers, got %d", arr.layers)
	}
	if len(arr.uploads) != 2 || arr.uploads[0] != 0 || arr.uploads[1] != 1 {
		t.Errorf("expected uploads to layers [0 1], got %v", arr.uploads)
	}
}

func TestPrepareNoTextures(t *testing.T) {
	dev := &fakeDevice{}
	g := NewGroup(dev)
	g.AddScene("a", triScene(1, ""))

	if err := g.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if len(dev.arrays) != 0 {
		t.Errorf("expected no texture array for an untextured group, got %d", len(dev.arrays))
	}
	if g.Materials()[0].Md != NoTexture {
		t.Errorf("expected NoTexture sentinel, got %x", g.Materials()[0].Md)
	}
}

func TestPrepareCapacityExceeded(t *testing.T) {
	dev := &fakeDevice{}
	g := NewGroup(dev)
	g.MaterialCapacity = 1
	g.AddScene("a", &scene.Scene{
		Materials: []scene.Material{{Name: "m0"}, {Name: "m1"}},
		Meshes: []scene.Mesh{
			{Positions: [][3]float32{{0, 0, 0}}},
		},
	})

	err := g.Prepare()
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	// Surfaced before any upload is attempted.
	if len(dev.buffers) != 0 || len(dev.arrays) != 0 {
		t.Error("expected no device allocations after capacity failure")
	}
}

func TestPrepareDecodeFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	dev := &fakeDevice{}
	g := NewGroup(dev)
	g.AddScene("a", triScene(1, bad))

	err := g.Prepare()
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decErr.Path != bad || decErr.Layer != 0 {
		t.Errorf("expected path %q layer 0 in error, got %q layer %d", bad, decErr.Path, decErr.Layer)
	}
	// The partially-built array must not survive.
	if dev.arrays[0].destroys != 1 {
		t.Error("expected the partial texture array to be destroyed")
	}
	if g.Textures != nil {
		t.Error("expected no texture array on the group after a failed build")
	}
}

func TestPrepareBufferSizes(t *testing.T) {
	dev := &fakeDevice{}
	g := NewGroup(dev)
	g.AddScene("a", triScene(2, ""))
	g.AddInstanceTransform(0, 0, mgl32.Ident4())
	g.AddInstanceTransform(0, 1, mgl32.Ident4())

	if err := g.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if want := int(g.VertexCount()) * int(g.Layout.Stride()); g.VertexBuffer.Size() != want {
		t.Errorf("expected vertex buffer size %d, got %d", want, g.VertexBuffer.Size())
	}
	if want := int(g.IndexCount()) * 4; g.IndexBuffer.Size() != want {
		t.Errorf("expected index buffer size %d, got %d", want, g.IndexBuffer.Size())
	}
	if want := g.MaterialCapacity * MaterialSize; g.MaterialBuffer.Size() != want {
		t.Errorf("expected material buffer size %d, got %d", want, g.MaterialBuffer.Size())
	}
	if want := 2 * InstanceDataSize; g.InstanceBuffer.Size() != want {
		t.Errorf("expected instance buffer size %d, got %d", want, g.InstanceBuffer.Size())
	}
}

func TestBuildInstanceBufferRebuild(t *testing.T) {
	dev := &fakeDevice{}
	g := NewGroup(dev)
	g.AddScene("a", triScene(1, ""))
	g.AddInstanceTransform(0, 0, mgl32.Ident4())

	if err := g.BuildInstanceBuffer(); err != nil {
		t.Fatalf("BuildInstanceBuffer failed: %v", err)
	}
	old := g.InstanceBuffer.(*fakeBuffer)

	g.AddInstanceTransform(0, 0, mgl32.Translate3D(1, 0, 0))
	if err := g.BuildInstanceBuffer(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	// The old buffer may be in flight: the device drains before release.
	if dev.waits != 1 {
		t.Errorf("expected one device drain before rebuild, got %d", dev.waits)
	}
	if old.destroys != 1 {
		t.Errorf("expected old buffer destroyed once, got %d", old.destroys)
	}
	if g.InstanceBuffer.Size() != 2*InstanceDataSize {
		t.Errorf("expected rebuilt buffer sized for 2 instances, got %d", g.InstanceBuffer.Size())
	}
}

func TestUpdateBuffers(t *testing.T) {
	dev := &fakeDevice{}
	g := NewGroup(dev)
	g.AddScene("a", triScene(1, ""))
	g.AddInstanceTransform(0, 0, mgl32.Ident4())

	if err := g.UpdateMaterialBuffer(); err == nil {
		t.Error("expected error updating material buffer before Prepare")
	}
	if err := g.UpdateInstanceBuffer(); err == nil {
		t.Error("expected error updating instance buffer before build")
	}

	if err := g.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if err := g.UpdateMaterialBuffer(); err != nil {
		t.Errorf("UpdateMaterialBuffer failed: %v", err)
	}
	mb := g.MaterialBuffer.(*fakeBuffer)
	if len(mb.writes) != 2 {
		t.Errorf("expected 2 whole-table writes (prepare + update), got %d", len(mb.writes))
	}
	if len(mb.writes[1]) != g.MaterialCapacity*MaterialSize {
		t.Errorf("expected capacity-sized write, got %d bytes", len(mb.writes[1]))
	}

	if err := g.UpdateInstanceBuffer(); err != nil {
		t.Errorf("UpdateInstanceBuffer failed: %v", err)
	}
}

func TestDestroy(t *testing.T) {
	dev := &fakeDevice{}
	g := NewGroup(dev)
	g.AddScene("a", triScene(1, writePng(t, t.TempDir(), "tex.png")))
	g.AddInstanceTransform(0, 0, mgl32.Ident4())

	if err := g.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	g.Destroy()

	if dev.waits == 0 {
		t.Error("expected device drain before teardown")
	}
	for i, b := range dev.buffers {
		if b.destroys != 1 {
			t.Errorf("buffer %d: expected one destroy, got %d", i, b.destroys)
		}
	}
	if dev.arrays[0].destroys != 1 {
		t.Errorf("expected texture array destroyed, got %d", dev.arrays[0].destroys)
	}
	if g.VertexBuffer != nil || g.Textures != nil {
		t.Error("expected group resource references cleared")
	}
}
