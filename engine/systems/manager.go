package systems

import (
	"errors"
	"runtime"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/shaderc"
)

type SystemManager struct {
	CameraSystem   *CameraSystem
	GeometrySystem *GeometrySystem
	JobSystem      *JobSystem
	ShaderSystem   *ShaderSystem
	TextureSystem  *TextureSystem
}

// NewSystemManager starts every system on top of r. A nil compiler selects
// the WGSL compiler.
func NewSystemManager(r *renderer.Renderer, shaders core.ShaderConfig, compiler shaderc.Compiler) (*SystemManager, error) {
	if compiler == nil {
		compiler = shaderc.NewNagaCompiler()
	}
	js, err := NewJobSystem(max(runtime.NumCPU()-1, 1), 64)
	if err != nil {
		return nil, err
	}
	sm := &SystemManager{JobSystem: js}

	if sm.CameraSystem, err = NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 16,
	}); err != nil {
		return nil, errors.Join(err, sm.Shutdown())
	}
	if sm.TextureSystem, err = NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: 256,
	}, r); err != nil {
		return nil, errors.Join(err, sm.Shutdown())
	}
	if sm.GeometrySystem, err = NewGeometrySystem(&GeometrySystemConfig{
		MaxGeometryCount: 256,
	}, r); err != nil {
		return nil, errors.Join(err, sm.Shutdown())
	}
	if sm.ShaderSystem, err = NewShaderSystem(&ShaderSystemConfig{
		Directory:   shaders.Directory,
		Definitions: shaders.Definitions,
		HotReload:   shaders.HotReload,
	}, compiler, js, r); err != nil {
		return nil, errors.Join(err, sm.Shutdown())
	}
	return sm, nil
}

/**
 * @brief Updates the systems. Should happen once an update cycle.
 */
func (sm *SystemManager) Update() {
	sm.ShaderSystem.Update()
	sm.TextureSystem.Update()
}

// Shutdown stops the systems in reverse start order. Systems that never
// started are skipped.
func (sm *SystemManager) Shutdown() error {
	var errs []error
	if sm.ShaderSystem != nil {
		errs = append(errs, sm.ShaderSystem.Shutdown())
	}
	if sm.GeometrySystem != nil {
		errs = append(errs, sm.GeometrySystem.Shutdown())
	}
	if sm.TextureSystem != nil {
		errs = append(errs, sm.TextureSystem.Shutdown())
	}
	if sm.CameraSystem != nil {
		errs = append(errs, sm.CameraSystem.Shutdown())
	}
	if sm.JobSystem != nil {
		errs = append(errs, sm.JobSystem.Shutdown())
	}
	return errors.Join(errs...)
}
