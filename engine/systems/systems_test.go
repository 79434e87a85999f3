package systems

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/shaderc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompiler struct {
	mu    sync.Mutex
	calls map[metadata.ShaderStage]int
	fail  atomic.Bool
}

func (c *fakeCompiler) Compile(stage metadata.ShaderStage, source string, defines []string) (shaderc.Result, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[metadata.ShaderStage]int)
	}
	c.calls[stage]++
	c.mu.Unlock()
	if c.fail.Load() {
		return shaderc.Result{}, &shaderc.CompileError{Stage: stage.String(), Message: "broken"}
	}
	return shaderc.Result{EntryPoint: "main", Binary: []uint32{0x07230203}, GLSL: source}, nil
}

func (c *fakeCompiler) Calls(stage metadata.ShaderStage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[stage]
}

func newNullRenderer(t *testing.T) *renderer.Renderer {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.Backend = "null"
	cfg.Width = 64
	cfg.Height = 64
	r, err := renderer.InitWithConfig(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(r.Shutdown)
	return r
}

func writeProgram(t *testing.T, dir, name string) {
	t.Helper()
	for _, stage := range []string{"vert", "frag"} {
		path := filepath.Join(dir, name+"."+stage+".wgsl")
		require.NoError(t, os.WriteFile(path, []byte("// "+name+" "+stage), 0o644))
	}
}

func TestJobSystem(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)

	js, err := NewJobSystem(3, 2)
	require.NoError(t, err)
	defer js.Shutdown()

	var ran atomic.Int32
	boom := errors.New("boom")
	tasks := make([]func() error, 10)
	for i := range tasks {
		tasks[i] = func() error {
			ran.Add(1)
			if i == 4 {
				return boom
			}
			return nil
		}
	}
	assert.ErrorIs(t, js.RunAll(tasks), boom)
	assert.Equal(t, int32(10), ran.Load())

	assert.NoError(t, js.RunAll(nil))
	assert.NoError(t, js.Shutdown())
	// A second shutdown is a no-op.
	assert.NoError(t, js.Shutdown())
}

func TestCameraSystem(t *testing.T) {
	_, err := NewCameraSystem(&CameraSystemConfig{})
	assert.Error(t, err)

	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 2})
	require.NoError(t, err)

	def, err := cs.Acquire(components.DEFAULT_CAMERA_NAME)
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), def)

	a, err := cs.Acquire("a")
	require.NoError(t, err)
	again, err := cs.Acquire("a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = cs.Acquire("b")
	require.NoError(t, err)
	_, err = cs.Acquire("c")
	assert.Error(t, err, "only two slots")

	a.SetPosition(mgl32.Vec3{1, 2, 3})
	cs.Release("a")
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, a.GetPosition(), "still referenced once")
	cs.Release("a")
	assert.Equal(t, mgl32.Vec3{}, a.GetPosition())

	_, err = cs.Acquire("c")
	assert.NoError(t, err, "the released slot is reused")
	assert.NoError(t, cs.Shutdown())
}

func faceNormal(v []MeshVertex, a, b, c uint16) mgl32.Vec3 {
	pa, pb, pc := mgl32.Vec3(v[a].Position), mgl32.Vec3(v[b].Position), mgl32.Vec3(v[c].Position)
	return pb.Sub(pa).Cross(pc.Sub(pa))
}

func TestGenerateCubeConfig(t *testing.T) {
	cube := GenerateCubeConfig(2, 2, 2, 1, 1, "box")
	assert.Equal(t, "box", cube.Name)
	require.Len(t, cube.Vertices, 24)
	require.Len(t, cube.Indices, 36)
	assert.InDelta(t, mgl32.Vec3{1, 1, 1}.Len(), cube.Radius, 1e-6)

	for i := 0; i < len(cube.Indices); i += 3 {
		a, b, c := cube.Indices[i], cube.Indices[i+1], cube.Indices[i+2]
		n := faceNormal(cube.Vertices, a, b, c)
		assert.Positive(t, n.Dot(mgl32.Vec3(cube.Vertices[a].Normal)), "triangle %d faces inwards", i/3)
	}
}

func TestGenerateSphereConfig(t *testing.T) {
	sphere := GenerateSphereConfig(2, 8, 12, "ball")
	assert.Len(t, sphere.Vertices, 9*13)
	assert.Len(t, sphere.Indices, 8*12*6)
	for _, v := range sphere.Vertices {
		assert.InDelta(t, 2, mgl32.Vec3(v.Position).Len(), 1e-5)
	}
	// Skip the degenerate triangles at the poles.
	for i := 0; i < len(sphere.Indices); i += 3 {
		a, b, c := sphere.Indices[i], sphere.Indices[i+1], sphere.Indices[i+2]
		n := faceNormal(sphere.Vertices, a, b, c)
		if n.Len() < 1e-6 {
			continue
		}
		centroid := mgl32.Vec3(sphere.Vertices[a].Position).
			Add(mgl32.Vec3(sphere.Vertices[b].Position)).
			Add(mgl32.Vec3(sphere.Vertices[c].Position))
		assert.Positive(t, n.Dot(centroid), "triangle %d faces inwards", i/3)
	}
}

func TestMeshVertexDecl(t *testing.T) {
	decl := MeshVertexDecl()
	assert.Equal(t, uint32(32), decl.Stride())
	assert.True(t, decl.Has(metadata.AttributeNormal))
}

func TestGeometrySystem(t *testing.T) {
	r := newNullRenderer(t)
	_, err := NewGeometrySystem(&GeometrySystemConfig{}, r)
	assert.Error(t, err)

	gs, err := NewGeometrySystem(&GeometrySystemConfig{MaxGeometryCount: 3}, r)
	require.NoError(t, err)

	cube, err := gs.Acquire(CubeGeometryName)
	require.NoError(t, err)
	assert.True(t, cube.VertexBuffer.IsValid())
	assert.Equal(t, uint32(36), cube.IndexCount)

	_, err = gs.Create(GenerateCubeConfig(1, 2, 3, 1, 1, "slab"))
	require.NoError(t, err)
	_, err = gs.Create(GenerateCubeConfig(1, 2, 3, 1, 1, "full"))
	assert.Error(t, err)

	_, err = gs.Create(GeometryConfig{Name: "empty"})
	assert.Error(t, err)

	gs.Release("slab")
	_, err = gs.Acquire("slab")
	assert.Error(t, err)
	assert.NoError(t, gs.Shutdown())
	assert.Empty(t, gs.RegisteredGeometries)
}

func TestCheckerImage(t *testing.T) {
	a := color.RGBA{255, 0, 0, 255}
	b := color.RGBA{0, 0, 255, 255}
	img := CheckerImage(64, 4, a, b)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, a, img.RGBAAt(0, 0))
	assert.Equal(t, a, img.RGBAAt(15, 15))
	assert.Equal(t, b, img.RGBAAt(16, 0))
	assert.Equal(t, b, img.RGBAAt(0, 16))
	assert.Equal(t, a, img.RGBAAt(16, 16))

	sub := img.SubImage(img.Bounds().Inset(8))
	packed := ToRGBA(sub)
	assert.Equal(t, 48*48*4, len(packed.Pix))
	assert.Equal(t, a, packed.RGBAAt(0, 0))
}

func TestTextureSystem(t *testing.T) {
	r := newNullRenderer(t)
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 3}, r)
	require.NoError(t, err)

	checker := ts.Acquire(CheckerTextureName)
	require.True(t, checker.IsValid())
	info, ok := r.TextureInfo(checker)
	require.True(t, ok)
	assert.Equal(t, uint32(256), info.Width)
	assert.Equal(t, metadata.TextureFormatRGBA8, info.Format)

	assert.Equal(t, checker, ts.Acquire("missing"))

	h, err := ts.Register("red", CheckerImage(4, 1, color.RGBA{255, 0, 0, 255}, color.RGBA{}), false)
	require.NoError(t, err)
	_, err = ts.Register("blue", CheckerImage(4, 1, color.RGBA{0, 0, 255, 255}, color.RGBA{}), false)
	assert.Error(t, err)

	replaced, err := ts.Register("red", CheckerImage(8, 1, color.RGBA{255, 0, 0, 255}, color.RGBA{}), false)
	require.NoError(t, err)
	assert.NotEqual(t, h, replaced)
	_, ok = r.TextureInfo(h)
	assert.False(t, ok, "the replaced texture is deleted")

	assert.NoError(t, ts.Shutdown())
	_, ok = r.TextureInfo(replaced)
	assert.False(t, ok)
}

func writePNG(t *testing.T, path string, size int, c color.RGBA) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, CheckerImage(size, 1, c, c)))
	require.NoError(t, f.Close())
}

func TestTextureSystemLoadDirectory(t *testing.T) {
	r := newNullRenderer(t)
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 8}, r)
	require.NoError(t, err)
	defer ts.Shutdown()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "bricks"), 0o755))
	writePNG(t, filepath.Join(dir, "bricks", "wall.png"), 8, color.RGBA{200, 0, 0, 255})
	writePNG(t, filepath.Join(dir, "floor.png"), 4, color.RGBA{0, 200, 0, 255})

	count, err := ts.LoadDirectory(dir, true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	_, err = ts.LoadDirectory(dir, false)
	assert.Error(t, err)

	wall := ts.Acquire("bricks/wall")
	info, ok := r.TextureInfo(wall)
	require.True(t, ok)
	assert.Equal(t, uint32(8), info.Width)
	assert.True(t, info.GenerateMipmaps)

	writePNG(t, filepath.Join(dir, "bricks", "wall.png"), 16, color.RGBA{0, 0, 200, 255})
	assert.Eventually(t, func() bool {
		ts.Update()
		info, ok := r.TextureInfo(ts.Acquire("bricks/wall"))
		return ok && info.Width == 16
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotEqual(t, wall, ts.Acquire("bricks/wall"))
}

func TestTextureName(t *testing.T) {
	assert.Equal(t, "bricks/wall", TextureName("bricks/wall.png"))
	assert.Equal(t, "floor", TextureName("floor.jpeg"))
}

func TestShaderSystemLoad(t *testing.T) {
	r := newNullRenderer(t)
	dir := t.TempDir()
	writeProgram(t, dir, "flat")
	writeProgram(t, dir, "lit")

	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	_, err = NewShaderSystem(&ShaderSystemConfig{Directory: dir}, nil, js, r)
	assert.Error(t, err)
	_, err = NewShaderSystem(&ShaderSystemConfig{Directory: filepath.Join(dir, "nope")}, &fakeCompiler{}, js, r)
	assert.Error(t, err)

	compiler := &fakeCompiler{}
	ss, err := NewShaderSystem(&ShaderSystemConfig{Directory: dir}, compiler, js, r)
	require.NoError(t, err)
	assert.Equal(t, "wgsl", ss.Config.Extension)

	require.NoError(t, ss.Load("flat", "lit"))
	flat := ss.Program("flat")
	assert.True(t, flat.IsValid())
	assert.True(t, ss.Program("lit").IsValid())
	assert.NotEqual(t, flat, ss.Program("lit"))
	assert.False(t, ss.Program("unknown").IsValid())
	assert.Equal(t, 2, compiler.Calls(metadata.ShaderStageVertex))
	assert.Equal(t, 2, compiler.Calls(metadata.ShaderStageFragment))

	// Loaded programs are not compiled again.
	require.NoError(t, ss.Load("flat"))
	assert.Equal(t, 2, compiler.Calls(metadata.ShaderStageVertex))

	assert.Error(t, ss.Load("missing"))
	assert.False(t, ss.Program("missing").IsValid())

	require.NoError(t, ss.Shutdown())
	assert.Empty(t, ss.Lookup)
}

func TestShaderSystemReload(t *testing.T) {
	r := newNullRenderer(t)
	dir := t.TempDir()
	writeProgram(t, dir, "flat")

	js, err := NewJobSystem(1, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	compiler := &fakeCompiler{}
	ss, err := NewShaderSystem(&ShaderSystemConfig{Directory: dir}, compiler, js, r)
	require.NoError(t, err)
	defer ss.Shutdown()
	require.NoError(t, ss.Load("flat"))
	before := ss.Program("flat")

	ss.Queue("flat")
	assert.Eventually(t, func() bool {
		ss.mu.Lock()
		defer ss.mu.Unlock()
		return len(ss.pending) == 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, 1, ss.Update())
	assert.NotEqual(t, before, ss.Program("flat"))
	assert.Equal(t, uint32(1), ss.Generation("flat"))
	assert.Zero(t, ss.Update())

	// A broken source keeps the previous program.
	compiler.fail.Store(true)
	current := ss.Program("flat")
	ss.Queue("flat")
	assert.Eventually(t, func() bool { return compiler.Calls(metadata.ShaderStageVertex) == 3 }, time.Second, time.Millisecond)
	assert.Zero(t, ss.Update())
	assert.Equal(t, current, ss.Program("flat"))
}

func TestProgramName(t *testing.T) {
	assert.Equal(t, "cube", programName("/shaders/cube.vert.wgsl"))
	assert.Equal(t, "blit", programName("blit"))
}

func TestSystemManager(t *testing.T) {
	r := newNullRenderer(t)
	dir := t.TempDir()
	writeProgram(t, dir, "flat")

	_, err := NewSystemManager(r, core.ShaderConfig{Directory: filepath.Join(dir, "missing")}, &fakeCompiler{})
	assert.Error(t, err)

	sm, err := NewSystemManager(r, core.ShaderConfig{Directory: dir}, &fakeCompiler{})
	require.NoError(t, err)
	require.NoError(t, sm.ShaderSystem.Load("flat"))
	sm.Update()
	assert.NoError(t, sm.Shutdown())
}
