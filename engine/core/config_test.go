package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(1<<20), cfg.Transient.VertexBytes)
	assert.Equal(t, uint32(1<<20), cfg.Transient.IndexBytes)
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	doc := `
backend = "null"
width = 800
height = 600
worker_thread = false

[transient]
vertex_bytes = 4096

[vulkan]
validation = true
`
	cfg, err := ParseConfig([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "null", cfg.Backend)
	assert.Equal(t, uint32(800), cfg.Width)
	assert.Equal(t, uint32(600), cfg.Height)
	assert.False(t, cfg.WorkerThread)
	assert.Equal(t, uint32(4096), cfg.Transient.VertexBytes)
	// untouched fields keep their defaults
	assert.Equal(t, uint32(DefaultTransientIndexBytes), cfg.Transient.IndexBytes)
	assert.True(t, cfg.Vulkan.Validation)
	assert.Equal(t, uint64(DefaultUniformScratchBytes), cfg.Vulkan.UniformScratchBytes)
	assert.Equal(t, "prism", cfg.Title)
}

func TestParseConfigRejectsUnknownFields(t *testing.T) {
	_, err := ParseConfig([]byte("widht = 10\n"))
	assert.Error(t, err)
}

func TestParseConfigRejectsUnknownBackend(t *testing.T) {
	_, err := ParseConfig([]byte(`backend = "metal"`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedBackend))
}

func TestLoadConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "opengl"
	cfg.Shaders.Definitions = []string{"USE_FOG"}

	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "renderer.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
