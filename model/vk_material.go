package model

import "github.com/jpbruyere/vkbase/scene"

// NoTexture marks a material map slot that references no texture layer.
const NoTexture = ^uint32(0)

// MaterialSize is the packed byte size of one material table entry.
const MaterialSize = 96

// Material is one entry of the shared material table, packed std140-style so
// the table uploads as raw bytes. Map fields hold texture array layer indices
// after Prepare resolves them, NoTexture otherwise.
type Material struct {
	Ka [4]float32 // ambient
	Kd [4]float32 // diffuse
	Ks [4]float32 // specular
	Ke [4]float32 // emissive
	Ma uint32     // ambient map, reserved
	Md uint32     // diffuse map
	Me uint32     // emissive map, reserved
	Ns float32    // shininess
	Ni float32    // refraction index
	D  float32    // opacity
	Nm float32    // metalness
	Nr float32    // roughness
}

// NewMaterial packs an imported material. The roughness mapping 10/Ns (0.2
// when shininess is zero) must stay exactly as is, the shaders bake it in.
func NewMaterial(sm scene.Material) Material {
	m := Material{
		Ka: vec4(sm.Ambient),
		Kd: vec4(sm.Diffuse),
		Ks: vec4(sm.Specular),
		Ke: vec4(sm.Emissive),
		Ma: NoTexture,
		Md: NoTexture,
		Me: NoTexture,
		Ns: sm.Shininess,
		Ni: 1.5,
		D:  1.0,
		Nm: 0.9,
	}
	if sm.Opacity > 0 {
		m.D = sm.Opacity
	}
	if m.Ns == 0 {
		m.Nr = 0.2
	} else {
		m.Nr = 10.0 / m.Ns
	}
	return m
}

func vec4(v [3]float32) [4]float32 {
	return [4]float32{v[0], v[1], v[2], 1}
}
