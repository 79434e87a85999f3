package shaderc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Change is delivered for every shader file rewritten under a watched
// directory. Err is set when the new version failed to compile.
type Change struct {
	Path   string
	Stage  metadata.ShaderStage
	Result Result
	Err    error
}

// Watcher recompiles shader files when they change on disk.
type Watcher struct {
	dir      string
	compiler Compiler
	defines  []string
	onChange func(Change)

	fs   *fsnotify.Watcher
	wg   sync.WaitGroup
	once sync.Once
}

// NewWatcher starts watching dir. onChange runs on the watcher goroutine.
func NewWatcher(dir string, compiler Compiler, defines []string, onChange func(Change)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      dir,
		compiler: compiler,
		defines:  defines,
		onChange: onChange,
		fs:       fs,
	}
	w.wg.Add(1)
	go w.loop()
	core.LogInfo("watching shaders in %s", dir)
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			stage, err := StageFromPath(ev.Name)
			if err != nil {
				continue
			}
			res, err := CompileFile(w.compiler, ev.Name, stage, w.defines)
			if err != nil {
				core.LogWarn("shader %s failed to recompile: %s", ev.Name, err)
			}
			w.onChange(Change{Path: ev.Name, Stage: stage, Result: res, Err: err})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)
		}
	}
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

// StageFromPath derives the stage from a file name such as cube.vert.wgsl
// or blit.frag.
func StageFromPath(path string) (metadata.ShaderStage, error) {
	parts := strings.Split(filepath.Base(path), ".")
	for i := len(parts) - 1; i > 0; i-- {
		if stage, err := metadata.ParseShaderStage(parts[i]); err == nil {
			return stage, nil
		}
	}
	return 0, fmt.Errorf("no shader stage in file name %q", path)
}

// CompileFile reads and compiles one shader file.
func CompileFile(c Compiler, path string, stage metadata.ShaderStage, defines []string) (Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return c.Compile(stage, string(src), defines)
}
