package systems

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/shaderc"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief Directory holding <name>.vert.<ext> and <name>.frag.<ext> pairs. */
	Directory string
	/** @brief File extension of the sources, without the dot. */
	Extension string
	/** @brief Compile definitions handed to every compilation. */
	Definitions []string
	/** @brief Recompile programs when their sources change on disk. */
	HotReload bool
}

// compiledProgram is a program whose stages compiled and that waits to be
// created on the submit thread.
type compiledProgram struct {
	name   string
	stages []metadata.ShaderStageInfo
}

/**
 * @brief ShaderSystem compiles named programs from a shader directory and
 * keeps them current while their sources change.
 *
 * Everything except the watcher callback runs on the submit thread.
 */
type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig
	// A lookup table for program name->handle
	Lookup map[string]metadata.ProgramHandle

	compiler  shaderc.Compiler
	watcher   *shaderc.Watcher
	jobSystem *JobSystem
	renderer  *renderer.Renderer

	mu      sync.Mutex
	pending map[string]compiledProgram
	// Generation counts the rebuilds of each program.
	generation map[string]uint32
}

var programStages = []metadata.ShaderStage{metadata.ShaderStageVertex, metadata.ShaderStageFragment}

var stageSuffix = map[metadata.ShaderStage]string{
	metadata.ShaderStageVertex:   "vert",
	metadata.ShaderStageFragment: "frag",
}

func NewShaderSystem(config *ShaderSystemConfig, compiler shaderc.Compiler, js *JobSystem, r *renderer.Renderer) (*ShaderSystem, error) {
	if compiler == nil {
		err := fmt.Errorf("NewShaderSystem - a shader compiler is required")
		core.LogError(err.Error())
		return nil, err
	}
	if config.Extension == "" {
		config.Extension = "wgsl"
	}
	if info, err := os.Stat(config.Directory); err != nil || !info.IsDir() {
		err := fmt.Errorf("NewShaderSystem - shader directory %q is not readable", config.Directory)
		core.LogError(err.Error())
		return nil, err
	}

	ss := &ShaderSystem{
		Config:     config,
		Lookup:     make(map[string]metadata.ProgramHandle),
		compiler:   compiler,
		jobSystem:  js,
		renderer:   r,
		pending:    make(map[string]compiledProgram),
		generation: make(map[string]uint32),
	}
	if config.HotReload {
		w, err := shaderc.NewWatcher(config.Directory, compiler, config.Definitions, ss.onChange)
		if err != nil {
			core.LogWarn("shader hot reload disabled: %s", err)
		} else {
			ss.watcher = w
		}
	}
	return ss, nil
}

/**
 * @brief Shuts down the shader system, deleting every program it created.
 */
func (ss *ShaderSystem) Shutdown() error {
	var err error
	if ss.watcher != nil {
		err = ss.watcher.Close()
		ss.watcher = nil
	}
	for name, h := range ss.Lookup {
		ss.renderer.DeleteProgram(h)
		delete(ss.Lookup, name)
	}
	return err
}

func (ss *ShaderSystem) path(name string, stage metadata.ShaderStage) string {
	return filepath.Join(ss.Config.Directory, fmt.Sprintf("%s.%s.%s", name, stageSuffix[stage], ss.Config.Extension))
}

func (ss *ShaderSystem) compile(name string) (compiledProgram, error) {
	prog := compiledProgram{name: name}
	for _, stage := range programStages {
		res, err := shaderc.CompileFile(ss.compiler, ss.path(name, stage), stage, ss.Config.Definitions)
		if err != nil {
			return compiledProgram{}, fmt.Errorf("program %s: %w", name, err)
		}
		prog.stages = append(prog.stages, shaderc.StageInfo(res, stage))
	}
	return prog, nil
}

/**
 * @brief Load compiles the named programs in parallel on the job system and
 * creates them. Programs already loaded are skipped.
 */
func (ss *ShaderSystem) Load(names ...string) error {
	todo := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := ss.Lookup[name]; !ok {
			todo = append(todo, name)
		}
	}
	results := make([]compiledProgram, len(todo))
	tasks := make([]func() error, len(todo))
	for i, name := range todo {
		tasks[i] = func() error {
			prog, err := ss.compile(name)
			results[i] = prog
			return err
		}
	}
	if err := ss.jobSystem.RunAll(tasks); err != nil {
		core.LogError("failed to compile shaders: %s", err)
		return err
	}
	for _, prog := range results {
		ss.Lookup[prog.name] = ss.renderer.CreateProgram(prog.stages...)
		core.LogDebug("program %s created (%s)", prog.name, ss.Lookup[prog.name])
	}
	return nil
}

// Program returns the current handle of a loaded program, or an invalid
// handle.
func (ss *ShaderSystem) Program(name string) metadata.ProgramHandle {
	h, ok := ss.Lookup[name]
	if !ok {
		return metadata.InvalidProgram
	}
	return h
}

// Generation is the number of times the program was rebuilt after loading.
func (ss *ShaderSystem) Generation(name string) uint32 {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.generation[name]
}

// programName strips the stage and extension from a shader file name.
func programName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

func (ss *ShaderSystem) onChange(c shaderc.Change) {
	if c.Err != nil {
		return
	}
	ss.Queue(programName(c.Path))
}

// Queue recompiles a loaded program in the background. The rebuilt
// program replaces the old one at the next Update.
func (ss *ShaderSystem) Queue(name string) {
	ss.jobSystem.Submit(JobTask{
		OnStart: func() error {
			prog, err := ss.compile(name)
			if err != nil {
				return err
			}
			ss.mu.Lock()
			ss.pending[name] = prog
			ss.mu.Unlock()
			return nil
		},
		OnFailure: func(err error) {
			core.LogWarn("keeping the previous version of %s: %s", name, err)
		},
	})
}

/**
 * @brief Update swaps in programs rebuilt since the last call. Should
 * happen once an update cycle.
 */
func (ss *ShaderSystem) Update() int {
	ss.mu.Lock()
	pending := ss.pending
	ss.pending = make(map[string]compiledProgram)
	ss.mu.Unlock()

	swapped := 0
	for name, prog := range pending {
		old, ok := ss.Lookup[name]
		if !ok {
			continue
		}
		ss.Lookup[name] = ss.renderer.CreateProgram(prog.stages...)
		ss.renderer.DeleteProgram(old)

		ss.mu.Lock()
		ss.generation[name]++
		ss.mu.Unlock()
		core.LogInfo("program %s reloaded", name)
		swapped++
	}
	return swapped
}
