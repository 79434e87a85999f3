package renderer

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/null"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
)

func newContext(kind BackendKind, cfg core.RendererConfig) (RenderContext, error) {
	switch kind {
	case BackendNull:
		return null.New(), nil
	case BackendVulkan:
		return vulkan.New(cfg), nil
	case BackendOpenGL:
		return opengl.New(cfg), nil
	}
	return nil, core.NewInitError(core.ErrUnsupportedBackend, "%s", kind)
}
