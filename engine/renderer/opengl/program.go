package opengl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/spirv"
)

// uniformBlock backs one uniform buffer binding of a program.
type uniformBlock struct {
	info   metadata.UniformBufferInfo
	buffer *glBuffer
	data   []byte
}

/**
 * @brief A linked program. Names found in a uniform block are written into
 * its buffer; the others resolve through the location cache to the default
 * block. A program that failed to build is kept with Err set.
 */
type glProgram struct {
	Handle uint32
	Layout metadata.ProgramLayout
	blocks []uniformBlock
	// locations caches glGetUniformLocation by raw name, -1 included.
	locations map[string]int32

	Err error
}

func (p *glProgram) Usable() bool {
	return p != nil && p.Err == nil
}

func shaderInfoLog(shader uint32) string {
	var length int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
	if length <= 1 {
		return ""
	}
	msg := make([]byte, length)
	var n int32
	gl.GetShaderInfoLog(shader, length, &n, &msg[0])
	return strings.TrimSpace(string(msg[:n]))
}

func programInfoLog(program uint32) string {
	var length int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
	if length <= 1 {
		return ""
	}
	msg := make([]byte, length)
	var n int32
	gl.GetProgramInfoLog(program, length, &n, &msg[0])
	return strings.TrimSpace(string(msg[:n]))
}

// compileStage builds one shader object. GLSL text is preferred; without it
// the SPIR-V words go through the driver's SPIR-V front end.
func compileStage(info metadata.ShaderStageInfo) (uint32, error) {
	stage := info.Stage.String()
	entry := info.EntryPoint
	if entry == "" {
		entry = "main"
	}

	shader := gl.CreateShader(shaderType(info.Stage))
	switch {
	case info.Source != "":
		csources, free := gl.Strs(info.Source + "\x00")
		gl.ShaderSource(shader, 1, csources, nil)
		free()
		gl.CompileShader(shader)
	case len(info.Code) > 0:
		gl.ShaderBinary(1, &shader, gl.SHADER_BINARY_FORMAT_SPIR_V, gl.Ptr(info.Code), int32(len(info.Code)*4))
		gl.SpecializeShader(shader, gl.Str(entry+"\x00"), 0, nil, nil)
	default:
		gl.DeleteShader(shader)
		return 0, &core.ShaderError{Stage: stage, Message: "stage carries neither GLSL nor SPIR-V"}
	}

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		log := shaderInfoLog(shader)
		gl.DeleteShader(shader)
		return 0, &core.ShaderError{Stage: stage, Message: "compilation failed", DebugLog: log}
	}
	return shader, nil
}

// programCreate links a program from stage infos. It always returns a
// program; on failure it is unusable and Err says why.
func programCreate(infos []metadata.ShaderStageInfo, label string) *glProgram {
	p := &glProgram{locations: make(map[string]int32)}
	p.Err = p.build(infos, label)
	if p.Err != nil {
		p.Destroy()
	}
	return p
}

func (p *glProgram) build(infos []metadata.ShaderStageInfo, label string) error {
	hasVertex := false
	fromText := false
	shaders := make([]uint32, 0, len(infos))
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()

	reflections := make([]metadata.ShaderReflection, 0, len(infos))
	for _, info := range infos {
		shader, err := compileStage(info)
		if err != nil {
			return err
		}
		shaders = append(shaders, shader)
		fromText = fromText || info.Source != ""
		hasVertex = hasVertex || info.Stage == metadata.ShaderStageVertex

		if len(info.Code) == 0 {
			continue
		}
		reflection, err := spirv.Reflect(info.Code, info.Stage, info.EntryPoint)
		if err != nil {
			return &core.ShaderError{Stage: info.Stage.String(), Message: "reflection failed", DebugLog: err.Error()}
		}
		reflections = append(reflections, reflection.ShaderReflection)
	}
	if !hasVertex {
		return errors.New("program has no vertex stage")
	}

	p.Handle = gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(p.Handle, s)
	}
	gl.LinkProgram(p.Handle)
	var status int32
	gl.GetProgramiv(p.Handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return &core.ShaderError{Stage: "program", Message: "link failed", DebugLog: programInfoLog(p.Handle)}
	}
	for _, s := range shaders {
		gl.DetachShader(p.Handle, s)
	}
	if label != "" {
		gl.ObjectLabel(gl.PROGRAM, p.Handle, -1, gl.Str(label+"\x00"))
	}

	p.Layout = metadata.MergeReflections(reflections...)
	if fromText {
		p.assignBindings()
	}
	for _, ub := range p.Layout.UniformBuffers {
		buf, err := bufferCreate(ub.Size, metadata.BufferUsageDynamic, nil)
		if err != nil {
			return err
		}
		p.blocks = append(p.blocks, uniformBlock{info: ub, buffer: buf, data: make([]byte, max(ub.Size, 1))})
	}

	core.LogDebug("Program linked: %d stages, %d uniform blocks, %d samplers.",
		len(infos), len(p.blocks), len(p.Layout.Samplers))
	return nil
}

// assignBindings points the blocks and samplers of a program compiled from
// text at the bindings reflected from its SPIR-V. Names the driver does not
// know keep whatever the source declared.
func (p *glProgram) assignBindings() {
	for _, ub := range p.Layout.UniformBuffers {
		for _, name := range []string{ub.Name, ub.Instance} {
			if name == "" {
				continue
			}
			index := gl.GetUniformBlockIndex(p.Handle, gl.Str(name+"\x00"))
			if index != gl.INVALID_INDEX {
				gl.UniformBlockBinding(p.Handle, index, ub.Binding)
				break
			}
		}
	}
	for _, s := range p.Layout.Samplers {
		if loc := p.location(s.Name); loc >= 0 {
			gl.ProgramUniform1i(p.Handle, loc, int32(s.Binding))
		}
	}
}

func (p *glProgram) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.Handle, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

// writeBlocks zeroes every block and writes the values that live in one.
// It returns the names left for the default block.
func (p *glProgram) writeBlocks(values map[string]metadata.UniformValue) []string {
	for i := range p.blocks {
		clear(p.blocks[i].data)
	}
	var rest []string
	for name, value := range values {
		loc, ok := p.Layout.Lookup(name)
		if !ok {
			rest = append(rest, name)
			continue
		}
		block := &p.blocks[loc.Buffer]
		end := min(loc.Offset+loc.Size, uint32(len(block.data)))
		if loc.Offset < end {
			copy(block.data[loc.Offset:end], value.Std140())
		}
	}
	return rest
}

// upload writes the uniforms of one draw and binds the blocks. Names that
// are neither in a block nor in the default block are reported to unknown.
func (p *glProgram) upload(values map[string]metadata.UniformValue, unknown func(name string)) error {
	for _, name := range p.writeBlocks(values) {
		loc := p.location(name)
		if loc < 0 {
			if unknown != nil {
				unknown(name)
			}
			continue
		}
		setDefaultUniform(p.Handle, loc, values[name])
	}
	for _, b := range p.blocks {
		if err := b.buffer.Update(0, b.data); err != nil {
			return fmt.Errorf("uniform block %q: %w", b.info.Name, err)
		}
		gl.BindBufferBase(gl.UNIFORM_BUFFER, b.info.Binding, b.buffer.Handle)
	}
	return nil
}

// setDefaultUniform uploads one default block uniform. Matrices are handed
// over row-major with transpose set.
func setDefaultUniform(program uint32, loc int32, value metadata.UniformValue) {
	fs := value.Floats()
	switch value.Type() {
	case metadata.UniformTypeInt:
		gl.ProgramUniform1i(program, loc, value.Int())
	case metadata.UniformTypeFloat:
		gl.ProgramUniform1f(program, loc, value.Float())
	case metadata.UniformTypeVec2:
		gl.ProgramUniform2fv(program, loc, 1, &fs[0])
	case metadata.UniformTypeVec3:
		gl.ProgramUniform3fv(program, loc, 1, &fs[0])
	case metadata.UniformTypeVec4:
		gl.ProgramUniform4fv(program, loc, 1, &fs[0])
	case metadata.UniformTypeMat3:
		gl.ProgramUniformMatrix3fv(program, loc, 1, true, &fs[0])
	case metadata.UniformTypeMat4:
		gl.ProgramUniformMatrix4fv(program, loc, 1, true, &fs[0])
	}
}

func (p *glProgram) Destroy() {
	for _, b := range p.blocks {
		b.buffer.Destroy()
	}
	p.blocks = nil
	if p.Handle != 0 {
		gl.DeleteProgram(p.Handle)
		p.Handle = 0
	}
	if p.Err == nil {
		p.Err = errors.New("program destroyed")
	}
}

func unknownUniformWarner(program metadata.ProgramHandle) func(string) {
	return func(name string) {
		core.WarnOnce(fmt.Sprintf("uniform:%s:%s", program, name), "%s has no uniform named %q", program, name)
	}
}
