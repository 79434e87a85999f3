package testbed

import (
	"encoding/binary"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var transientIndices = []uint16{0, 2, 1, 2, 0, 3}

// transientScene rebuilds a pulsing quad in transient buffers every frame.
type transientScene struct {
	time    float64
	dropped uint64
}

func (s *transientScene) Name() string       { return "transient" }
func (s *transientScene) Programs() []string { return []string{quadProgram} }

func (s *transientScene) Initialize(*SceneContext) error              { return nil }
func (s *transientScene) Resize(*SceneContext, uint32, uint32) error { return nil }

func (s *transientScene) Update(deltaTime float64) {
	s.time += deltaTime
}

// vertices returns the quad of the current frame.
func (s *transientScene) vertices() []quadVertex {
	size := float32(0.35 + 0.15*gomath.Sin(s.time*2))
	pulse := float32(0.5 + 0.5*gomath.Sin(s.time))
	out := make([]quadVertex, len(quadVertices))
	for i, v := range quadVertices {
		out[i] = quadVertex{
			Position: [3]float32{v.Position[0] * 2 * size, v.Position[1] * 2 * size, 0},
			Color:    [3]float32{v.Color[0] * pulse, v.Color[1], v.Color[2] * (1 - pulse)},
		}
	}
	return out
}

func (s *transientScene) Render(ctx *SceneContext) error {
	r := ctx.Renderer
	r.StartRenderQueue(metadata.InvalidFramebuffer)
	r.SetViewClear(sceneClearColor, true, true)

	vb, ok := r.AllocTransientVertexBuffer(uint32(len(quadVertices)), quadDecl)
	if !ok {
		s.drop()
		return nil
	}
	ib, ok := r.AllocTransientIndexBuffer(uint32(len(transientIndices)), metadata.IndexTypeUint16)
	if !ok {
		s.drop()
		return nil
	}
	if _, err := binary.Encode(r.TransientVertexBufferData(vb), binary.LittleEndian, s.vertices()); err != nil {
		return err
	}
	if _, err := binary.Encode(r.TransientIndexBufferData(ib), binary.LittleEndian, transientIndices); err != nil {
		return err
	}

	r.SetTransientVertexBuffer(vb)
	r.SetTransientIndexBuffer(ib)
	r.SetUniform("u_transform", metadata.UniformMat4(mgl32.Ident4()))
	r.SetStateCull(false, metadata.WindingCCW)
	r.Submit(ctx.Program(quadProgram), uint32(len(transientIndices)), 0)
	return nil
}

func (s *transientScene) drop() {
	s.dropped++
	core.WarnOnce("transient-scene-drop", "transient arena exhausted, dropping the quad")
}

func (s *transientScene) Shutdown(*SceneContext) {
	if s.dropped > 0 {
		core.LogWarn("transient scene dropped %d frames", s.dropped)
	}
}
