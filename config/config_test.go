package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Group.TextureSize != 1024 {
		t.Errorf("expected texture size 1024, got %d", cfg.Group.TextureSize)
	}
	if cfg.Group.MaterialCapacity != 256 {
		t.Errorf("expected material capacity 256, got %d", cfg.Group.MaterialCapacity)
	}

	// All import post-processing steps default to enabled
	imp := cfg.Import
	if !imp.Triangulate || !imp.JoinIdenticalVertices || !imp.CalcTangentSpace ||
		!imp.GenSmoothNormals || !imp.MakeLeftHanded || !imp.OptimizeMeshes {
		t.Errorf("expected all import flags enabled by default, got %+v", imp)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`group:
  texture_size: 512
import:
  gen_smooth_normals: false
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Group.TextureSize != 512 {
		t.Errorf("expected texture size 512, got %d", cfg.Group.TextureSize)
	}
	// Unset values keep their defaults
	if cfg.Group.MaterialCapacity != 256 {
		t.Errorf("expected default material capacity 256, got %d", cfg.Group.MaterialCapacity)
	}
	if cfg.Import.GenSmoothNormals {
		t.Error("expected gen_smooth_normals to be disabled")
	}
	if !cfg.Import.Triangulate {
		t.Error("expected triangulate to keep its default")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path failed: %v", err)
	}
	if cfg.Group.TextureSize != 1024 {
		t.Errorf("expected defaults for empty path, got texture size %d", cfg.Group.TextureSize)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := Default()
	cfg.Group.TextureSize = 2048
	cfg.Logging.Level = "warn"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Group.TextureSize != 2048 {
		t.Errorf("expected texture size 2048 after round trip, got %d", loaded.Group.TextureSize)
	}
	if loaded.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn' after round trip, got %s", loaded.Logging.Level)
	}
}
