package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief A vertex, index or uniform buffer object. */
type glBuffer struct {
	Handle uint32
	Size   uint32
	Usage  metadata.BufferUsage
}

// bufferCreate allocates size bytes and fills the front with data. The
// driver copies data before returning.
func bufferCreate(size uint32, usage metadata.BufferUsage, data []byte) (*glBuffer, error) {
	size = max(size, 1)
	if uint32(len(data)) > size {
		return nil, fmt.Errorf("%d bytes of data for a %d byte buffer", len(data), size)
	}
	buf := &glBuffer{Size: size, Usage: usage}
	gl.CreateBuffers(1, &buf.Handle)
	if buf.Handle == 0 {
		return nil, fmt.Errorf("glCreateBuffers returned no buffer")
	}
	gl.NamedBufferData(buf.Handle, int(size), nil, bufferUsageHint(usage))
	if len(data) > 0 {
		gl.NamedBufferSubData(buf.Handle, 0, len(data), gl.Ptr(data))
	}
	return buf, nil
}

func (b *glBuffer) Update(offset uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if uint64(offset)+uint64(len(data)) > uint64(b.Size) {
		return fmt.Errorf("update of %d bytes at %d overflows the %d byte buffer", len(data), offset, b.Size)
	}
	gl.NamedBufferSubData(b.Handle, int(offset), len(data), gl.Ptr(data))
	return nil
}

func (b *glBuffer) Destroy() {
	if b.Handle != 0 {
		gl.DeleteBuffers(1, &b.Handle)
		b.Handle = 0
	}
}
