package core

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultTransientVertexBytes = 1 << 20
	DefaultTransientIndexBytes  = 1 << 20
	DefaultUniformScratchBytes  = 4 << 20
	DefaultDescriptorPoolSets   = 1024
)

type TransientConfig struct {
	VertexBytes uint32 `toml:"vertex_bytes"`
	IndexBytes  uint32 `toml:"index_bytes"`
}

type VulkanConfig struct {
	Validation          bool   `toml:"validation"`
	UniformScratchBytes uint64 `toml:"uniform_scratch_bytes"`
	DescriptorPoolSets  uint32 `toml:"descriptor_pool_sets"`
	VSync               bool   `toml:"vsync"`
}

type OpenGLConfig struct {
	DebugOutput bool `toml:"debug_output"`
	VSync       bool `toml:"vsync"`
}

type TextureConfig struct {
	Directory string `toml:"directory"`
	HotReload bool   `toml:"hot_reload"`
}

type ShaderConfig struct {
	Directory   string   `toml:"directory"`
	HotReload   bool     `toml:"hot_reload"`
	Definitions []string `toml:"definitions"`
}

// RendererConfig holds the construction parameters of a renderer together
// with the backend tunables.
type RendererConfig struct {
	Backend      string `toml:"backend"`
	Width        uint32 `toml:"width"`
	Height       uint32 `toml:"height"`
	Title        string `toml:"title"`
	WorkerThread bool   `toml:"worker_thread"`
	LogLevel     string `toml:"log_level"`

	Transient TransientConfig `toml:"transient"`
	Vulkan    VulkanConfig    `toml:"vulkan"`
	OpenGL    OpenGLConfig    `toml:"opengl"`
	Shaders   ShaderConfig    `toml:"shaders"`
	Textures  TextureConfig   `toml:"textures"`
}

func DefaultConfig() RendererConfig {
	return RendererConfig{
		Backend:      "vulkan",
		Width:        1280,
		Height:       720,
		Title:        "prism",
		WorkerThread: true,
		LogLevel:     "info",
		Transient: TransientConfig{
			VertexBytes: DefaultTransientVertexBytes,
			IndexBytes:  DefaultTransientIndexBytes,
		},
		Vulkan: VulkanConfig{
			Validation:          false,
			UniformScratchBytes: DefaultUniformScratchBytes,
			DescriptorPoolSets:  DefaultDescriptorPoolSets,
			VSync:               true,
		},
		OpenGL: OpenGLConfig{
			VSync: true,
		},
		Shaders: ShaderConfig{
			Directory: "shaders",
		},
	}
}

// ParseConfig decodes a TOML document on top of the defaults. Unknown keys
// are rejected.
func ParseConfig(data []byte) (RendererConfig, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return RendererConfig{}, fmt.Errorf("failed to decode renderer config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RendererConfig{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (RendererConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RendererConfig{}, err
	}
	return ParseConfig(data)
}

func (c RendererConfig) Validate() error {
	switch c.Backend {
	case "vulkan", "opengl", "null":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Backend)
	}
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("window size must be non zero, got %dx%d", c.Width, c.Height)
	}
	if c.Transient.VertexBytes == 0 || c.Transient.IndexBytes == 0 {
		return fmt.Errorf("transient arenas must be non empty")
	}
	if c.Vulkan.UniformScratchBytes == 0 {
		return fmt.Errorf("uniform scratch buffer must be non empty")
	}
	return nil
}

// Marshal renders the config back to TOML, used to dump the effective
// configuration at startup.
func (c RendererConfig) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
