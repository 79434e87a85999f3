package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/dispatch"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

type VulkanRenderer struct {
	config      core.RendererConfig
	host        platform.VulkanSurfaceHost
	FrameNumber uint64
	context     *VulkanContext

	loaderHeld bool
	ready      bool

	// Render passes by shape and load op, shared by swapchain and client
	// targets.
	renderpasses map[renderpassKey]*VulkanRenderpass

	vertexBuffers map[metadata.VertexBufferHandle]*VulkanBuffer
	indexBuffers  map[metadata.IndexBufferHandle]*VulkanBuffer
	shaders       map[metadata.ShaderHandle]metadata.ShaderStageInfo
	programs      map[metadata.ProgramHandle]*VulkanProgram
	textures      map[metadata.TextureHandle]*VulkanTexture
	targets       map[metadata.FramebufferHandle]*renderTarget

	pipelines      *containers.Cache[pipelineKey, *VulkanPipeline]
	descriptors    *containers.Cache[descriptorKey, *descriptorEntry]
	samplers       *containers.Cache[metadata.SamplerInfo, vk.Sampler]
	descriptorPool *VulkanDescriptorPool

	// Uniform scratch: the arena packs one frame, the buffer holds one
	// region per slot.
	scratch      *VulkanBuffer
	scratchArena *containers.LinearArena

	// Bound where a binding has no texture.
	fallback *VulkanTexture

	// Work that has to wait until the GPU is done with a slot: deletions
	// and the Stream buffer writes of the other slots.
	pending       []*containers.RingQueue[func()]
	lastSubmitted uint32

	cachedWidth   uint32
	cachedHeight  uint32
	resizePending bool

	encoder   frameEncoder
	lastStats dispatch.Stats
}

func New(cfg core.RendererConfig) *VulkanRenderer {
	return &VulkanRenderer{
		config: cfg,
		context: &VulkanContext{
			Allocator: nil,
		},
	}
}

func (vr *VulkanRenderer) CreateWindow(host platform.WindowHost, width, height uint32) error {
	surfaceHost, ok := host.(platform.VulkanSurfaceHost)
	if !ok {
		return core.NewInitError(core.ErrWindowCreation, "window host %T cannot create Vulkan surfaces", host)
	}
	vr.host = surfaceHost

	if err := acquireLoader(surfaceHost.InstanceProcAddr()); err != nil {
		return core.NewInitError(err, "Vulkan loader")
	}
	vr.loaderHeld = true

	if err := vr.initialize(width, height); err != nil {
		vr.DestroyWindow()
		var initErr *core.InitError
		if errors.As(err, &initErr) {
			return err
		}
		return core.NewInitError(err, "Vulkan renderer")
	}
	return nil
}

func (vr *VulkanRenderer) initialize(width, height uint32) error {
	context := vr.context
	context.FramebufferWidth, context.FramebufferHeight = vr.host.FramebufferSize()
	if context.FramebufferWidth == 0 || context.FramebufferHeight == 0 {
		context.FramebufferWidth, context.FramebufferHeight = width, height
	}

	if err := vr.createInstance(); err != nil {
		return err
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.host.CreateVulkanSurface(context.Instance)
	if err != nil {
		return core.NewInitError(core.ErrWindowCreation, "Vulkan surface: %s", err)
	}
	context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := DeviceCreate(context); err != nil {
		return core.NewInitError(err, "Vulkan device")
	}

	vr.renderpasses = make(map[renderpassKey]*VulkanRenderpass)
	vr.vertexBuffers = make(map[metadata.VertexBufferHandle]*VulkanBuffer)
	vr.indexBuffers = make(map[metadata.IndexBufferHandle]*VulkanBuffer)
	vr.shaders = make(map[metadata.ShaderHandle]metadata.ShaderStageInfo)
	vr.programs = make(map[metadata.ProgramHandle]*VulkanProgram)
	vr.textures = make(map[metadata.TextureHandle]*VulkanTexture)
	vr.targets = make(map[metadata.FramebufferHandle]*renderTarget)
	vr.pipelines = containers.NewCache[pipelineKey, *VulkanPipeline]()
	vr.descriptors = containers.NewCache[descriptorKey, *descriptorEntry]()
	vr.samplers = containers.NewCache[metadata.SamplerInfo, vk.Sampler]()

	// Swapchain
	sc, err := SwapchainCreate(context, context.FramebufferWidth, context.FramebufferHeight, vr.config.Vulkan.VSync)
	if err != nil {
		return err
	}
	context.Swapchain = sc
	if err := vr.swapchainFramebuffers(); err != nil {
		return err
	}

	if err := vr.createFrameResources(); err != nil {
		return err
	}

	pool, err := DescriptorPoolCreate(context, vr.config.Vulkan.DescriptorPoolSets)
	if err != nil {
		return err
	}
	vr.descriptorPool = pool

	scratchBytes := max(vr.config.Vulkan.UniformScratchBytes, uint64(streamRegionAlignment))
	scratch, err := BufferCreate(context, scratchBytes, maxFramesInFlight, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), true)
	if err != nil {
		return fmt.Errorf("uniform scratch buffer: %w", err)
	}
	vr.scratch = scratch
	vr.scratchArena = containers.NewLinearArena(uint32(scratchBytes))

	white, err := TextureCreate(context, metadata.TextureInfo{Width: 1, Height: 1, Format: metadata.TextureFormatRGBA8}, []byte{0xff, 0xff, 0xff, 0xff})
	if err != nil {
		return fmt.Errorf("fallback texture: %w", err)
	}
	vr.fallback = white

	vr.ready = true
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	context := vr.context
	debug := vr.config.Vulkan.Validation

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.Title),
		PEngineName:        VulkanSafeString("Prism"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{vk.KhrSurfaceExtensionName}
	for _, name := range vr.host.RequiredInstanceExtensions() {
		if name != vk.KhrSurfaceExtensionName {
			requiredExtensions = append(requiredExtensions, name)
		}
	}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers.
	var layers []string
	if debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = []string{validationLayerName}
		available, err := instanceLayers()
		if err != nil {
			return err
		}
		for _, name := range layers {
			if !available[name] {
				return core.NewInitError(core.ErrValidationLayerMissing, "%s", name)
			}
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, context.Allocator, &context.Instance); res != vk.Success {
		return resultError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		return fmt.Errorf("failed to load instance functions: %w", err)
	}
	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			return resultError("vkCreateDebugReportCallbackEXT", res)
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func instanceLayers() (map[string]bool, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	properties := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, properties); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	layers := make(map[string]bool, count)
	for i := range properties {
		properties[i].Deref()
		layers[cString(properties[i].LayerName[:])] = true
	}
	return layers, nil
}

// createFrameResources builds what exists once per frame in flight.
func (vr *VulkanRenderer) createFrameResources() error {
	context := vr.context
	device := context.Device

	context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, maxFramesInFlight)
	context.ImageAvailableSemaphores = make([]vk.Semaphore, maxFramesInFlight)
	context.QueueCompleteSemaphores = make([]vk.Semaphore, maxFramesInFlight)
	context.InFlightFences = make([]*VulkanFence, maxFramesInFlight)
	vr.pending = make([]*containers.RingQueue[func()], maxFramesInFlight)

	for i := 0; i < maxFramesInFlight; i++ {
		cb, err := NewVulkanCommandBuffer(context, device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		context.GraphicsCommandBuffers[i] = cb

		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &context.ImageAvailableSemaphores[i]); res != vk.Success {
			return resultError("vkCreateSemaphore", res)
		}
		if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &context.QueueCompleteSemaphores[i]); res != vk.Success {
			return resultError("vkCreateSemaphore", res)
		}

		// Created signaled so that the first frame of each slot does not
		// wait for a submission that never happened.
		fence, err := NewFence(context, true)
		if err != nil {
			return err
		}
		context.InFlightFences[i] = fence
		vr.pending[i] = containers.NewRingQueue[func()](64)
	}
	context.ImagesInFlight = make([]*VulkanFence, context.Swapchain.ImageCount)
	core.LogDebug("Vulkan frame resources created for %d frames in flight.", maxFramesInFlight)
	return nil
}

// renderpass returns the render pass for key, creating it on first use.
func (vr *VulkanRenderer) renderpass(key renderpassKey) (*VulkanRenderpass, error) {
	if rp, ok := vr.renderpasses[key]; ok {
		return rp, nil
	}
	rp, err := RenderpassCreate(vr.context, key)
	if err != nil {
		return nil, err
	}
	vr.renderpasses[key] = rp
	return rp, nil
}

func (vr *VulkanRenderer) swapchainFramebuffers() error {
	rp, err := vr.renderpass(renderpassKey{shape: vr.context.Swapchain.Shape()})
	if err != nil {
		return err
	}
	return vr.context.Swapchain.regenerateFramebuffers(vr.context, rp)
}

func (vr *VulkanRenderer) DestroyWindow() {
	context := vr.context
	if context.Device != nil && context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(context.Device.LogicalDevice)
		vr.destroyResources()
	}

	// Destroy in the opposite order of creation.
	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(context)

	core.LogDebug("Destroying Vulkan surface...")
	if context.Surface != vk.NullSurface {
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}

	if context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}

	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}

	if vr.loaderHeld {
		releaseLoader()
		vr.loaderHeld = false
	}
	vr.ready = false
}

// destroyResources releases every device object. The device is idle.
func (vr *VulkanRenderer) destroyResources() {
	context := vr.context
	device := context.Device.LogicalDevice

	for _, q := range vr.pending {
		drain(q)
	}
	vr.pending = nil

	if vr.descriptors != nil {
		vr.descriptors.Clear(func(_ descriptorKey, e *descriptorEntry) {
			vr.descriptorPool.Free(context, e.sets)
		})
	}
	if vr.pipelines != nil {
		vr.pipelines.Clear(func(_ pipelineKey, p *VulkanPipeline) { p.Destroy(context) })
	}
	if vr.samplers != nil {
		vr.samplers.Clear(func(_ metadata.SamplerInfo, s vk.Sampler) {
			vk.DestroySampler(device, s, context.Allocator)
		})
	}
	for h, t := range vr.targets {
		t.destroy(context)
		delete(vr.targets, h)
	}
	for h, t := range vr.textures {
		t.Destroy(context)
		delete(vr.textures, h)
	}
	for h, p := range vr.programs {
		p.Destroy(context)
		delete(vr.programs, h)
	}
	for h, b := range vr.vertexBuffers {
		b.BufferDestroy(context)
		delete(vr.vertexBuffers, h)
	}
	for h, b := range vr.indexBuffers {
		b.BufferDestroy(context)
		delete(vr.indexBuffers, h)
	}
	clear(vr.shaders)

	if vr.fallback != nil {
		vr.fallback.Destroy(context)
		vr.fallback = nil
	}
	if vr.scratch != nil {
		vr.scratch.BufferDestroy(context)
		vr.scratch = nil
	}
	if vr.descriptorPool != nil {
		vr.descriptorPool.Destroy(context)
		vr.descriptorPool = nil
	}

	// Sync objects
	for i := range context.InFlightFences {
		if context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, context.ImageAvailableSemaphores[i], context.Allocator)
		}
		if context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, context.QueueCompleteSemaphores[i], context.Allocator)
		}
		if context.InFlightFences[i] != nil {
			context.InFlightFences[i].FenceDestroy(context)
		}
	}
	context.ImageAvailableSemaphores = nil
	context.QueueCompleteSemaphores = nil
	context.InFlightFences = nil
	context.ImagesInFlight = nil

	// Command buffers
	for _, cb := range context.GraphicsCommandBuffers {
		if cb != nil && cb.Handle != nil {
			cb.Free(context, context.Device.GraphicsCommandPool)
		}
	}
	context.GraphicsCommandBuffers = nil

	// Swapchain
	if context.Swapchain != nil {
		context.Swapchain.SwapchainDestroy(context)
		context.Swapchain = nil
	}
	for key, rp := range vr.renderpasses {
		rp.RenderpassDestroy(context)
		delete(vr.renderpasses, key)
	}
}

func drain(q *containers.RingQueue[func()]) {
	if q == nil {
		return
	}
	for !q.IsEmpty() {
		fn, err := q.Dequeue()
		if err != nil {
			return
		}
		fn()
	}
}

// deferToGPU runs fn once the GPU is done with everything submitted so far.
func (vr *VulkanRenderer) deferToGPU(fn func()) {
	vr.pending[vr.lastSubmitted].Push(fn)
}

// PrepareFrame picks up framebuffer resizes and waits until the GPU is done
// with the slot about to be recorded, then runs the work deferred to it.
func (vr *VulkanRenderer) PrepareFrame() {
	if vr.context.Device == nil {
		return
	}
	if vr.host.FramebufferResized() {
		vr.cachedWidth, vr.cachedHeight = vr.host.FramebufferSize()
		vr.resizePending = true
	}
	if vr.resizePending {
		vr.recreateSwapchain()
	}

	slot := vr.context.CurrentFrame
	if err := vr.context.InFlightFences[slot].FenceWait(vr.context, fenceTimeout); err != nil {
		core.LogError("in-flight fence wait failure: %s", err)
		return
	}
	drain(vr.pending[slot])
}

// recreateSwapchain rebuilds the swapchain for the cached framebuffer size.
// It keeps the resize pending while the window is minimized.
func (vr *VulkanRenderer) recreateSwapchain() bool {
	context := vr.context
	if context.RecreatingSwapchain {
		core.LogDebug("recreateSwapchain called when already recreating. Booting.")
		return false
	}
	width, height := vr.cachedWidth, vr.cachedHeight
	if width == 0 || height == 0 {
		width, height = vr.host.FramebufferSize()
	}
	// Detect if the window is too small to be drawn to
	if width == 0 || height == 0 {
		vr.ready = false
		return false
	}

	context.RecreatingSwapchain = true
	defer func() { context.RecreatingSwapchain = false }()

	// Wait for any operations to complete.
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	for i := range context.ImagesInFlight {
		context.ImagesInFlight[i] = nil
	}

	sc, err := context.Swapchain.SwapchainRecreate(context, width, height, vr.config.Vulkan.VSync)
	if err != nil {
		core.LogError("failed to recreate the swapchain: %s", err)
		context.Swapchain = &VulkanSwapchain{}
		vr.ready = false
		return false
	}
	context.Swapchain = sc
	context.FramebufferWidth = sc.Extent.Width
	context.FramebufferHeight = sc.Extent.Height
	if err := vr.swapchainFramebuffers(); err != nil {
		core.LogError("failed to regenerate the swapchain framebuffers: %s", err)
		vr.ready = false
		return false
	}
	if len(context.ImagesInFlight) != int(sc.ImageCount) {
		context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
		// Descriptor sets exist once per swapchain image.
		vr.descriptors.Clear(func(_ descriptorKey, e *descriptorEntry) {
			vr.descriptorPool.Free(context, e.sets)
		})
	}

	vr.cachedWidth, vr.cachedHeight = 0, 0
	vr.resizePending = false
	vr.ready = true
	core.LogInfo("Swapchain recreated at %dx%d.", width, height)
	return true
}

func (vr *VulkanRenderer) Frame(frame *metadata.Frame, transient metadata.TransientBacking) error {
	if !vr.ready {
		return nil
	}
	context := vr.context
	device := context.Device
	slot := context.CurrentFrame

	// Acquire the next image from the swap chain. The semaphore is waited
	// on by the submission below.
	imageIndex, result := context.Swapchain.SwapchainAcquireNextImageIndex(context, fenceTimeout, context.ImageAvailableSemaphores[slot], vk.NullFence)
	switch result {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		vr.recreateSwapchain()
		return nil
	default:
		err := resultError("vkAcquireNextImageKHR", result)
		if errors.Is(err, core.ErrDeviceLost) {
			return err
		}
		core.LogError("%s", err)
		return nil
	}
	context.ImageIndex = imageIndex

	vr.uploadTransient(frame, transient, slot)

	// Begin recording commands.
	cb := context.GraphicsCommandBuffers[slot]
	if err := cb.Reset(); err != nil {
		return vr.frameFailed(err)
	}
	if err := cb.Begin(false, false, false); err != nil {
		return vr.frameFailed(err)
	}

	vr.scratchArena.Reset()
	vr.encoder.begin(vr, cb, slot, imageIndex)
	stats, err := dispatch.Run(frame, &vr.encoder)
	if err != nil {
		return err
	}
	vr.lastStats = stats
	if err := vr.encoder.finish(); err != nil {
		return vr.frameFailed(err)
	}
	if err := cb.End(); err != nil {
		return vr.frameFailed(err)
	}
	if err := vr.scratch.Write(slot, 0, vr.scratchArena.Bytes()); err != nil {
		return vr.frameFailed(err)
	}

	// Make sure the previous frame is not using this image.
	if fence := context.ImagesInFlight[imageIndex]; fence != nil && fence != context.InFlightFences[slot] {
		if err := fence.FenceWait(context, fenceTimeout); err != nil {
			return vr.frameFailed(err)
		}
	}
	context.ImagesInFlight[imageIndex] = context.InFlightFences[slot]
	if err := context.InFlightFences[slot].FenceReset(context); err != nil {
		return vr.frameFailed(err)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{context.ImageAvailableSemaphores[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{context.QueueCompleteSemaphores[slot]},
	}
	if res := vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, context.InFlightFences[slot].Handle); res != vk.Success {
		return vr.frameFailed(resultError("vkQueueSubmit", res))
	}
	cb.UpdateSubmitted()
	vr.lastSubmitted = slot

	// Give the image back to the swapchain.
	recreate, err := context.Swapchain.SwapchainPresent(device.PresentQueue, context.QueueCompleteSemaphores[slot], imageIndex)
	if err != nil {
		if errors.Is(err, core.ErrDeviceLost) {
			return err
		}
		core.LogError("%s", err)
	}
	if recreate {
		vr.resizePending = true
	}

	context.CurrentFrame = (slot + 1) % maxFramesInFlight
	vr.FrameNumber++
	return nil
}

// frameFailed logs a failure of the frame being recorded. Only a lost
// device is returned.
func (vr *VulkanRenderer) frameFailed(err error) error {
	if errors.Is(err, core.ErrDeviceLost) {
		return err
	}
	core.LogError("frame %d dropped: %s", vr.FrameNumber, err)
	return nil
}

// uploadTransient copies the transient arenas into the slot region of their
// Stream buffers.
func (vr *VulkanRenderer) uploadTransient(frame *metadata.Frame, transient metadata.TransientBacking, slot uint32) {
	if data := frame.TransientVertices.Bytes(); len(data) > 0 {
		if buf, ok := vr.vertexBuffers[transient.VertexBuffer]; ok {
			if err := buf.Write(slot, 0, data); err != nil {
				core.LogError("transient vertices: %s", err)
			}
		}
	}
	if data := frame.TransientIndices.Bytes(); len(data) > 0 {
		if buf, ok := vr.indexBuffers[transient.IndexBuffer]; ok {
			if err := buf.Write(slot, 0, data); err != nil {
				core.LogError("transient indices: %s", err)
			}
		}
	}
}

// Stats reports what the last rendered frame executed.
func (vr *VulkanRenderer) Stats() dispatch.Stats {
	return vr.lastStats
}

// AdjustProjectionMatrix returns m unchanged: projections already target a
// [0,1] depth range with clip space y pointing down.
func (vr *VulkanRenderer) AdjustProjectionMatrix(m mgl32.Mat4) mgl32.Mat4 {
	return m
}

func (vr *VulkanRenderer) HasFlippedViewport() bool {
	return true
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
