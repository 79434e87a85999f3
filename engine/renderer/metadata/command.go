package metadata

// RenderCommand is a resource creation, update or deletion recorded on the
// submit thread and executed by the backend on the render thread. The set
// of commands is closed; backends dispatch with a type switch.
type RenderCommand interface {
	renderCommand()
}

// CreateVertexBufferCmd creates a buffer of Size bytes, or of Data.Len()
// bytes when Size is zero.
type CreateVertexBufferCmd struct {
	Handle VertexBufferHandle
	Data   *Memory
	Size   uint32
	Decl   VertexDecl
	Usage  BufferUsage
}

type UpdateVertexBufferCmd struct {
	Handle VertexBufferHandle
	Data   *Memory
	Offset uint32
}

type DeleteVertexBufferCmd struct {
	Handle VertexBufferHandle
}

type CreateIndexBufferCmd struct {
	Handle IndexBufferHandle
	Data   *Memory
	Size   uint32
	Type   IndexType
	Usage  BufferUsage
}

type UpdateIndexBufferCmd struct {
	Handle IndexBufferHandle
	Data   *Memory
	Offset uint32
}

type DeleteIndexBufferCmd struct {
	Handle IndexBufferHandle
}

type CreateShaderCmd struct {
	Handle ShaderHandle
	Stage  ShaderStageInfo
}

type DeleteShaderCmd struct {
	Handle ShaderHandle
}

// CreateProgramCmd builds a program straight from stage infos.
type CreateProgramCmd struct {
	Handle ProgramHandle
	Stages []ShaderStageInfo
}

// LinkProgramCmd builds a program from previously created shaders.
type LinkProgramCmd struct {
	Handle  ProgramHandle
	Shaders []ShaderHandle
}

type DeleteProgramCmd struct {
	Handle ProgramHandle
}

// CreateTextureCmd may carry no data, in which case the texture content is
// undefined until updated or rendered to.
type CreateTextureCmd struct {
	Handle TextureHandle
	Info   TextureInfo
	Data   *Memory
}

// UpdateTextureCmd replaces a region of the base level.
type UpdateTextureCmd struct {
	Handle TextureHandle
	X, Y   uint32
	Width  uint32
	Height uint32
	Data   *Memory
}

type DeleteTextureCmd struct {
	Handle TextureHandle
}

type CreateFramebufferCmd struct {
	Handle      FramebufferHandle
	Width       uint32
	Height      uint32
	Attachments []TextureHandle
}

type DeleteFramebufferCmd struct {
	Handle FramebufferHandle
}

func (CreateVertexBufferCmd) renderCommand() {}
func (UpdateVertexBufferCmd) renderCommand() {}
func (DeleteVertexBufferCmd) renderCommand() {}
func (CreateIndexBufferCmd) renderCommand()  {}
func (UpdateIndexBufferCmd) renderCommand()  {}
func (DeleteIndexBufferCmd) renderCommand()  {}
func (CreateShaderCmd) renderCommand()       {}
func (DeleteShaderCmd) renderCommand()       {}
func (CreateProgramCmd) renderCommand()      {}
func (LinkProgramCmd) renderCommand()        {}
func (DeleteProgramCmd) renderCommand()      {}
func (CreateTextureCmd) renderCommand()      {}
func (UpdateTextureCmd) renderCommand()      {}
func (DeleteTextureCmd) renderCommand()      {}
func (CreateFramebufferCmd) renderCommand()  {}
func (DeleteFramebufferCmd) renderCommand()  {}

func (c CreateVertexBufferCmd) ByteSize() uint32 {
	if c.Size != 0 {
		return c.Size
	}
	return uint32(c.Data.Len())
}

func (c CreateIndexBufferCmd) ByteSize() uint32 {
	if c.Size != 0 {
		return c.Size
	}
	return uint32(c.Data.Len())
}

// CommandMemory returns the blob carried by cmd, if any.
func CommandMemory(cmd RenderCommand) *Memory {
	switch c := cmd.(type) {
	case CreateVertexBufferCmd:
		return c.Data
	case UpdateVertexBufferCmd:
		return c.Data
	case CreateIndexBufferCmd:
		return c.Data
	case UpdateIndexBufferCmd:
		return c.Data
	case CreateTextureCmd:
		return c.Data
	case UpdateTextureCmd:
		return c.Data
	}
	return nil
}

// ReleaseCommands drops the memory references held by cmds.
func ReleaseCommands(cmds []RenderCommand) {
	for _, cmd := range cmds {
		CommandMemory(cmd).Release()
	}
}
