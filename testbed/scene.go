package testbed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
)

// SceneContext is what a scene may touch while it runs.
type SceneContext struct {
	Renderer *renderer.Renderer
	Systems  *systems.SystemManager
	Width    uint32
	Height   uint32
}

// Projection returns a perspective projection for the given aspect ratio in
// the convention of the active backend.
func (ctx *SceneContext) Projection(aspect float32) mgl32.Mat4 {
	return ctx.Renderer.AdjustProjectionMatrix(math.Perspective(mgl32.DegToRad(60), aspect, 0.1, 100))
}

// Aspect is the aspect ratio of the window.
func (ctx *SceneContext) Aspect() float32 {
	if ctx.Height == 0 {
		return 1
	}
	return float32(ctx.Width) / float32(ctx.Height)
}

// Program resolves a program by name on every frame so that reloaded
// programs are picked up.
func (ctx *SceneContext) Program(name string) metadata.ProgramHandle {
	return ctx.Systems.ShaderSystem.Program(name)
}

/**
 * @brief A Scene is one runnable rendering scenario.
 *
 * Initialize runs once after the programs listed by Programs are loaded.
 * Resize runs right after Initialize and whenever the window size changes.
 */
type Scene interface {
	Name() string
	Programs() []string
	Initialize(ctx *SceneContext) error
	Resize(ctx *SceneContext, width, height uint32) error
	Update(deltaTime float64)
	Render(ctx *SceneContext) error
	Shutdown(ctx *SceneContext)
}

var sceneRegistry = map[string]func() Scene{
	"triangle":    func() Scene { return &triangleScene{} },
	"quad":        func() Scene { return &quadScene{} },
	"transient":   func() Scene { return &transientScene{} },
	"postprocess": func() Scene { return &postProcessScene{} },
	"deferred":    func() Scene { return &deferredScene{} },
	"uniform":     func() Scene { return &unknownUniformScene{} },
}

// SceneNames lists the available scenes in alphabetical order.
func SceneNames() []string {
	names := make([]string, 0, len(sceneRegistry))
	for name := range sceneRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func NewScene(name string) (Scene, error) {
	factory, ok := sceneRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q, expected one of %s", name, strings.Join(SceneNames(), ", "))
	}
	return factory(), nil
}

var (
	pointClamp = metadata.NewSamplerInfo(metadata.WrapClamp, metadata.WrapClamp, metadata.WrapClamp,
		metadata.FilterPoint, metadata.FilterPoint, metadata.FilterPoint)
	linearClamp = metadata.NewSamplerInfo(metadata.WrapClamp, metadata.WrapClamp, metadata.WrapClamp,
		metadata.FilterLinear, metadata.FilterLinear, metadata.FilterPoint)
	linearRepeat = metadata.NewSamplerInfo(metadata.WrapRepeat, metadata.WrapRepeat, metadata.WrapRepeat,
		metadata.FilterLinear, metadata.FilterLinear, metadata.FilterLinear).WithAnisotropy(8)
)
