package shaderc

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestPreprocessConditionals(t *testing.T) {
	src := `a
#ifdef SHADOWS
shadows
#else
no shadows
#endif
#ifndef FAST
#ifdef SHADOWS
nested
#endif
slow
#endif
b`

	out, err := Preprocess(src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "", "", "no shadows", "", "", "", "", "", "slow", "", "b"}, lines(out))

	out, err = Preprocess(src, []string{"SHADOWS", "FAST"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "shadows", "", "", "", "", "", "", "", "", "", "b"}, lines(out))
}

func TestPreprocessSubstitutesValues(t *testing.T) {
	src := `#define LIGHTS 4
const count = LIGHTS;
const max = MAX_BONES;
let LIGHTS_X = 1;`
	out, err := Preprocess(src, []string{"MAX_BONES = 64"})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "const count = 4;", "const max = 64;", "let LIGHTS_X = 1;"}, lines(out))
}

func TestPreprocessUndefAndPassthrough(t *testing.T) {
	src := `#version 450
#define A
#undef A
#ifdef A
gone
#endif`
	out, err := Preprocess(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "#version 450", lines(out)[0])
	assert.NotContains(t, out, "gone")
}

func TestPreprocessErrors(t *testing.T) {
	cases := map[string]string{
		"unterminated": "#ifdef A\nx",
		"stray endif":  "#endif",
		"stray else":   "#else",
		"double else":  "#ifdef A\n#else\n#else\n#endif",
		"bad ifdef":    "#ifdef\n#endif",
		"bad define":   "#define 1abc",
	}
	for name, src := range cases {
		_, err := Preprocess(src, nil)
		assert.Error(t, err, name)
	}
	_, err := Preprocess("x", []string{"not valid"})
	assert.Error(t, err)
}

func TestStageFromPath(t *testing.T) {
	s, err := StageFromPath("shaders/cube.vert.wgsl")
	require.NoError(t, err)
	assert.Equal(t, metadata.ShaderStageVertex, s)

	s, err = StageFromPath("/tmp/blit.frag")
	require.NoError(t, err)
	assert.Equal(t, metadata.ShaderStageFragment, s)

	_, err = StageFromPath("common.wgsl")
	assert.Error(t, err)
}

type fakeCompiler struct {
	mu      sync.Mutex
	sources []string
}

func (f *fakeCompiler) Compile(stage metadata.ShaderStage, source string, defines []string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, source)
	if strings.Contains(source, "broken") {
		return Result{}, compileError(stage, "broken", "line 1")
	}
	return Result{EntryPoint: "main", Binary: []uint32{0x07230203}}, nil
}

func TestStageInfo(t *testing.T) {
	info := StageInfo(Result{EntryPoint: "vs_main", Binary: []uint32{1, 2}, GLSL: "void main(){}"}, metadata.ShaderStageVertex)
	assert.Equal(t, metadata.ShaderStageVertex, info.Stage)
	assert.Equal(t, "vs_main", info.EntryPoint)
	assert.Equal(t, []uint32{1, 2}, info.Code)
	assert.Equal(t, "void main(){}", info.Source)
}

func TestWatcherRecompilesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	compiler := &fakeCompiler{}
	changes := make(chan Change, 16)
	w, err := NewWatcher(dir, compiler, nil, func(c Change) { changes <- c })
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "quad.frag.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	select {
	case c := <-changes:
		assert.Equal(t, path, c.Path)
		assert.Equal(t, metadata.ShaderStageFragment, c.Stage)
		assert.NoError(t, c.Err)
		assert.Equal(t, "main", c.Result.EntryPoint)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	require.NoError(t, os.WriteFile(path, []byte("broken"), 0o644))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Err == nil {
				continue
			}
			var ce *CompileError
			require.ErrorAs(t, c.Err, &ce)
			assert.Equal(t, "fragment", ce.Stage)
			require.NoError(t, w.Close())
			return
		case <-deadline:
			t.Fatal("compile failure not delivered")
		}
	}
}
