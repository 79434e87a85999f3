package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief A GPU buffer. Host visible buffers stay persistently mapped and are
 * split into Regions equal parts of RegionSize bytes, one per frame in
 * flight; device local buffers have a single region and are written through
 * a staging copy.
 */
type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	Size        uint64
	RegionSize  uint64
	Regions     uint32
	HostVisible bool
	Mapped      unsafe.Pointer
}

func BufferCreate(context *VulkanContext, regionSize uint64, regions uint32, usage vk.BufferUsageFlags, hostVisible bool) (*VulkanBuffer, error) {
	if regionSize == 0 {
		return nil, fmt.Errorf("buffer size must be non zero")
	}
	regions = max(regions, 1)
	if regions > 1 {
		regionSize = math.AlignUp(regionSize, uint64(streamRegionAlignment))
	}
	buf := &VulkanBuffer{
		Size:        regionSize * uint64(regions),
		RegionSize:  regionSize,
		Regions:     regions,
		HostVisible: hostVisible,
	}
	device := context.Device.LogicalDevice

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(buf.Size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(device, &createInfo, context.Allocator, &buf.Handle); res != vk.Success {
		return nil, resultError("vkCreateBuffer", res)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buf.Handle, &req)
	req.Deref()

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	memory, err := context.allocateMemory(req, props)
	if err != nil {
		buf.BufferDestroy(context)
		return nil, err
	}
	buf.Memory = memory
	if res := vk.BindBufferMemory(device, buf.Handle, buf.Memory, 0); res != vk.Success {
		buf.BufferDestroy(context)
		return nil, resultError("vkBindBufferMemory", res)
	}

	if hostVisible {
		var ptr unsafe.Pointer
		if res := vk.MapMemory(device, buf.Memory, 0, vk.DeviceSize(buf.Size), 0, &ptr); res != vk.Success {
			buf.BufferDestroy(context)
			return nil, resultError("vkMapMemory", res)
		}
		buf.Mapped = ptr
	}
	return buf, nil
}

func (b *VulkanBuffer) BufferDestroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if b.Mapped != nil {
		vk.UnmapMemory(device, b.Memory)
		b.Mapped = nil
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}

// RegionOffset is the byte offset of the region used by a frame slot.
func (b *VulkanBuffer) RegionOffset(slot uint32) uint64 {
	if b.Regions <= 1 {
		return 0
	}
	return uint64(slot%b.Regions) * b.RegionSize
}

// Write copies data into region at offset. Only host visible buffers can
// be written this way.
func (b *VulkanBuffer) Write(region uint32, offset uint64, data []byte) error {
	if b.Mapped == nil {
		return fmt.Errorf("buffer is not host visible")
	}
	if offset+uint64(len(data)) > b.RegionSize {
		return fmt.Errorf("write of %d bytes at %d overflows the %d byte region", len(data), offset, b.RegionSize)
	}
	if len(data) == 0 {
		return nil
	}
	dst := unsafe.Add(b.Mapped, b.RegionOffset(region)+offset)
	vk.Memcopy(dst, data)
	return nil
}

// WriteAll copies data at offset into every region.
func (b *VulkanBuffer) WriteAll(offset uint64, data []byte) error {
	for r := uint32(0); r < b.Regions; r++ {
		if err := b.Write(r, offset, data); err != nil {
			return err
		}
	}
	return nil
}

// Upload writes data at offset of a device local buffer through a staging
// buffer.
func (b *VulkanBuffer) Upload(context *VulkanContext, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("upload of %d bytes at %d overflows the %d byte buffer", len(data), offset, b.Size)
	}
	staging, err := BufferCreate(context, uint64(len(data)), 1, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), true)
	if err != nil {
		return err
	}
	defer staging.BufferDestroy(context)
	if err := staging.Write(0, 0, data); err != nil {
		return err
	}
	return immediate(context, func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging.Handle, b.Handle, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: vk.DeviceSize(offset),
			Size:      vk.DeviceSize(len(data)),
		}})
	})
}

// Update routes a write by memory kind: host visible buffers get every
// region rewritten, device local ones a staging copy. The caller makes sure
// the GPU is done with the buffer.
func (b *VulkanBuffer) Update(context *VulkanContext, offset uint64, data []byte) error {
	if b.HostVisible {
		return b.WriteAll(offset, data)
	}
	return b.Upload(context, offset, data)
}

// geometryBufferUsage maps a client usage hint to the memory kind: Stream
// buffers are host visible with one region per frame in flight.
func geometryBufferUsage(usage metadata.BufferUsage) (hostVisible bool, regions uint32) {
	if usage == metadata.BufferUsageStream {
		return true, maxFramesInFlight
	}
	return false, 1
}

func geometryBufferCreate(context *VulkanContext, size uint32, usage metadata.BufferUsage, kind vk.BufferUsageFlagBits) (*VulkanBuffer, error) {
	hostVisible, regions := geometryBufferUsage(usage)
	flags := vk.BufferUsageFlags(kind)
	if !hostVisible {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	return BufferCreate(context, uint64(size), regions, flags, hostVisible)
}
