package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief Number of frames the CPU may record ahead of the GPU. Every per
 * frame resource (command buffer, semaphores, fence, scratch region, Stream
 * region, deletion queue) exists once per slot.
 */
const maxFramesInFlight = 2

/** @brief Max colour attachments of a framebuffer. */
const maxColorAttachments = 8

/** @brief Depth format of every framebuffer, including the swapchain one. */
const framebufferDepthFormat = vk.FormatD32Sfloat

/** @brief Alignment of each per slot region of a Stream buffer. */
const streamRegionAlignment = 256

// Max dynamic uniform buffers and sampled bindings of a program, used to
// size the descriptor pool.
const (
	maxUniformBuffersPerSet = 4
	maxSamplersPerSet       = 8
)

const fenceTimeout = ^uint64(0)

// Layout of textures outside of the queues rendering into them.
const textureRestingLayout = vk.ImageLayoutShaderReadOnlyOptimal

const lodClampNone = 1000.0
