// Package config handles renderbase configuration loading and management.
package config

// Config holds all renderbase settings.
type Config struct {
	Group   GroupConfig   `yaml:"group"`
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
}

// GroupConfig holds model group resource settings.
type GroupConfig struct {
	// TextureSize is the side length of every layer of the shared texture
	// array. Source images are scaled to this size on upload.
	TextureSize uint32 `yaml:"texture_size"`
	// MaterialCapacity is the fixed entry count of the shared material table.
	MaterialCapacity int `yaml:"material_capacity"`
}

// ImportConfig toggles the post-processing steps requested from the scene
// importer when loading an asset file.
type ImportConfig struct {
	Triangulate           bool `yaml:"triangulate"`
	JoinIdenticalVertices bool `yaml:"join_identical_vertices"`
	CalcTangentSpace      bool `yaml:"calc_tangent_space"`
	GenSmoothNormals      bool `yaml:"gen_smooth_normals"`
	MakeLeftHanded        bool `yaml:"make_left_handed"`
	OptimizeMeshes        bool `yaml:"optimize_meshes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Group: GroupConfig{
			TextureSize:      1024,
			MaterialCapacity: 256,
		},
		Import: ImportConfig{
			Triangulate:           true,
			JoinIdenticalVertices: true,
			CalcTangentSpace:      true,
			GenSmoothNormals:      true,
			MakeLeftHanded:        true,
			OptimizeMeshes:        true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
