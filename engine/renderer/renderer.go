package renderer

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Renderer is the single object a client talks to.
 *
 * Every method except Frame's render side runs on the submit thread, the
 * client's thread. Resource creation only records commands into the submit
 * frame, so handles are usable immediately within the same frame.
 */
type Renderer struct {
	ID   uuid.UUID
	Kind BackendKind

	ctx  RenderContext
	host platform.WindowHost
	cfg  core.RendererConfig
	log  *log.Logger

	handles *metadata.HandleAllocators

	// submit side bookkeeping
	vertexDecls  map[metadata.VertexBufferHandle]metadata.VertexDecl
	indexTypes   map[metadata.IndexBufferHandle]metadata.IndexType
	textures     map[metadata.TextureHandle]metadata.TextureInfo
	framebuffers map[metadata.FramebufferHandle]framebufferInfo

	submit *metadata.Frame
	render *metadata.Frame

	transient      metadata.TransientBacking
	fullscreenVB   metadata.VertexBufferHandle
	fullscreenDecl metadata.VertexDecl

	worker  bool
	barrier *core.Barrier
	mu      sync.Mutex
	cond    *sync.Cond
	swapped bool
	exit    atomic.Bool
	done    chan struct{}

	first  bool
	swaps  atomic.Uint64
	lost   atomic.Bool
	closed bool

	metrics *core.FrameMetrics
}

type framebufferInfo struct {
	width       uint32
	height      uint32
	attachments []metadata.TextureHandle
	// attachments created together with the framebuffer and deleted with it
	owned bool
}

// Init creates a window and a renderer for the given backend.
func Init(kind BackendKind, width, height uint32, title string, callbacks *core.InputCallbacks, useWorkerThread bool) (*Renderer, error) {
	cfg := core.DefaultConfig()
	cfg.Backend = kind.String()
	cfg.Width = width
	cfg.Height = height
	cfg.Title = title
	cfg.WorkerThread = useWorkerThread
	return InitWithConfig(cfg, callbacks)
}

// InitWithConfig is Init driven by a renderer config.
func InitWithConfig(cfg core.RendererConfig, callbacks *core.InputCallbacks) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, core.NewInitError(err, "invalid renderer config")
	}
	kind, err := ParseBackendKind(cfg.Backend)
	if err != nil {
		return nil, core.NewInitError(err, "backend %q", cfg.Backend)
	}
	if err := core.SetLogLevel(cfg.LogLevel); err != nil {
		core.LogWarn("ignoring log level %q: %s", cfg.LogLevel, err)
	}

	var host platform.WindowHost
	if kind == BackendNull {
		cfg.WorkerThread = false
		host = platform.NewHeadlessHost()
	} else {
		host = platform.NewGLFWHost()
	}
	host.SetInputCallbacks(callbacks)

	ctx, err := newContext(kind, cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, host, cfg)
}

// New builds a renderer around any render context. The host window is
// created here, the context is initialised on the render thread.
func New(ctx RenderContext, host platform.WindowHost, cfg core.RendererConfig) (*Renderer, error) {
	kind, err := ParseBackendKind(cfg.Backend)
	if err != nil {
		return nil, core.NewInitError(err, "backend %q", cfg.Backend)
	}

	r := &Renderer{
		ID:           uuid.New(),
		Kind:         kind,
		ctx:          ctx,
		host:         host,
		cfg:          cfg,
		handles:      metadata.NewHandleAllocators(),
		vertexDecls:  make(map[metadata.VertexBufferHandle]metadata.VertexDecl),
		indexTypes:   make(map[metadata.IndexBufferHandle]metadata.IndexType),
		textures:     make(map[metadata.TextureHandle]metadata.TextureInfo),
		framebuffers: make(map[metadata.FramebufferHandle]framebufferInfo),
		submit:       metadata.NewFrame(cfg.Transient.VertexBytes, cfg.Transient.IndexBytes),
		render:       metadata.NewFrame(cfg.Transient.VertexBytes, cfg.Transient.IndexBytes),
		worker:       cfg.WorkerThread,
		first:        true,
		metrics:      core.NewFrameMetrics(),
	}
	r.log = core.Logger().With("renderer", r.ID.String()[:8], "backend", kind.String())

	if err := host.CreateWindow(cfg.Title, cfg.Width, cfg.Height, kind.ClientAPI()); err != nil {
		var ie *core.InitError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, core.NewInitError(core.ErrWindowCreation, "%s", err)
	}

	if err := r.startBackend(); err != nil {
		host.DestroyWindow()
		var ie *core.InitError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, core.NewInitError(err, "%s backend", kind)
	}

	r.createSharedBuffers()

	r.log.Info("renderer initialized", "worker", r.worker, "size", [2]uint32{cfg.Width, cfg.Height})
	return r, nil
}

func (r *Renderer) startBackend() error {
	width, height := r.host.FramebufferSize()
	if !r.worker {
		return r.ctx.CreateWindow(r.host, width, height)
	}

	r.barrier = core.NewBarrier(2)
	r.cond = sync.NewCond(&r.mu)
	r.done = make(chan struct{})
	ready := make(chan error, 1)
	go r.renderLoop(width, height, ready)
	return <-ready
}

// createSharedBuffers records the Stream buffers backing the transient
// arenas and the fullscreen triangle into the first frame.
func (r *Renderer) createSharedBuffers() {
	r.transient.VertexBuffer = r.handles.VertexBuffers.Next()
	r.submit.Pre = append(r.submit.Pre, metadata.CreateVertexBufferCmd{
		Handle: r.transient.VertexBuffer,
		Size:   r.cfg.Transient.VertexBytes,
		Usage:  metadata.BufferUsageStream,
	})
	r.transient.IndexBuffer = r.handles.IndexBuffers.Next()
	r.submit.Pre = append(r.submit.Pre, metadata.CreateIndexBufferCmd{
		Handle: r.transient.IndexBuffer,
		Size:   r.cfg.Transient.IndexBytes,
		Type:   metadata.IndexTypeUint16,
		Usage:  metadata.BufferUsageStream,
	})

	// One triangle twice the size of the viewport, texture coordinates
	// cover [0,1] over the visible part.
	r.fullscreenDecl = metadata.NewVertexDecl().
		Add(metadata.AttributePosition, 2, metadata.AttributeTypeFloat, false).
		Add(metadata.AttributeTexCoord0, 2, metadata.AttributeTypeFloat, false).
		End()
	vertices := []float32{
		-1, -1, 0, 0,
		3, -1, 2, 0,
		-1, 3, 0, 2,
	}
	r.fullscreenVB = r.CreateVertexBuffer(metadata.MemoryFromSlice(vertices), r.fullscreenDecl, metadata.BufferUsageStatic)
}

func (r *Renderer) renderLoop(width, height uint32, ready chan<- error) {
	// GL contexts are bound to an OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	if err := r.ctx.CreateWindow(r.host, width, height); err != nil {
		ready <- err
		return
	}
	ready <- nil
	defer r.ctx.DestroyWindow()

	for {
		if !r.barrier.Wait() || r.exit.Load() {
			return
		}

		r.mu.Lock()
		for !r.swapped {
			r.cond.Wait()
		}
		r.swapped = false
		frame := r.render
		r.mu.Unlock()

		if err := r.renderFrame(frame); err != nil {
			r.log.Error("render thread terminated", "err", err)
			r.lost.Store(true)
			r.barrier.Break()
			return
		}
	}
}

// renderFrame executes one frame on the render thread and clears it.
func (r *Renderer) renderFrame(f *metadata.Frame) error {
	defer f.Reset()

	r.ctx.PrepareFrame()
	r.ctx.ProcessCommandList(f.Pre)
	metadata.ReleaseCommands(f.Pre)

	if err := r.ctx.Frame(f, r.transient); err != nil {
		metadata.ReleaseCommands(f.Post)
		return err
	}

	r.ctx.ProcessCommandList(f.Post)
	metadata.ReleaseCommands(f.Post)
	return nil
}

/**
 * @brief Frame ends the frame being recorded and hands it to the render side.
 *
 * With a worker thread it rendezvous with the render thread and swaps the
 * two frames. Without one it renders the previous frame inline; the very
 * first call renders nothing since no command has been executed yet.
 *
 * @return false once the window was closed or the device was lost.
 */
func (r *Renderer) Frame() bool {
	if r.closed || r.lost.Load() {
		return false
	}

	if r.worker {
		if !r.barrier.Wait() {
			return false
		}
		r.mu.Lock()
		r.submit, r.render = r.render, r.submit
		r.swapped = true
		r.cond.Signal()
		r.mu.Unlock()
	} else {
		if !r.first {
			if err := r.renderFrame(r.render); err != nil {
				r.log.Error("rendering stopped", "err", err)
				r.lost.Store(true)
			}
		}
		r.first = false
		r.submit, r.render = r.render, r.submit
	}
	r.swaps.Add(1)
	r.metrics.Tick()

	r.host.PollEvents()
	return !r.lost.Load() && !r.host.IsWindowClosed()
}

// Shutdown stops the render thread, releases the backend and closes the
// window. It is safe to call more than once.
func (r *Renderer) Shutdown() {
	if r.closed {
		return
	}
	r.closed = true

	if r.worker {
		r.exit.Store(true)
		r.barrier.Wait()
		<-r.done
	} else {
		r.ctx.DestroyWindow()
	}

	// Anything recorded but never rendered still holds memory.
	for _, f := range []*metadata.Frame{r.submit, r.render} {
		metadata.ReleaseCommands(f.Pre)
		f.Reset()
	}
	r.host.DestroyWindow()

	stats := r.metrics.Stats()
	r.log.Info("renderer shut down", "frames", stats.Frames)
}

func (r *Renderer) Stats() core.FrameStats {
	return r.metrics.Stats()
}

// Size is the current framebuffer size of the window in pixels.
func (r *Renderer) Size() (uint32, uint32) {
	return r.host.FramebufferSize()
}

func (r *Renderer) Host() platform.WindowHost {
	return r.host
}

// AdjustProjectionMatrix converts a right handed projection with a [0,1]
// depth range and y down clip space into the backend's convention.
func (r *Renderer) AdjustProjectionMatrix(m mgl32.Mat4) mgl32.Mat4 {
	return r.ctx.AdjustProjectionMatrix(m)
}

// HasFlippedViewport reports whether clip space y points down.
func (r *Renderer) HasFlippedViewport() bool {
	return r.ctx.HasFlippedViewport()
}
