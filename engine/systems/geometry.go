package systems

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	CubeGeometryName   = "cube"
	SphereGeometryName = "sphere"
)

/** @brief The vertex layout of every generated mesh. */
type MeshVertex struct {
	Position [3]float32
	Normal   [3]float32
	Texcoord [2]float32
}

// MeshVertexDecl describes MeshVertex.
func MeshVertexDecl() metadata.VertexDecl {
	return metadata.NewVertexDecl().
		Add(metadata.AttributePosition, 3, metadata.AttributeTypeFloat, false).
		Add(metadata.AttributeNormal, 3, metadata.AttributeTypeFloat, false).
		Add(metadata.AttributeTexCoord0, 2, metadata.AttributeTypeFloat, false).
		End()
}

type GeometryConfig struct {
	Name     string
	Vertices []MeshVertex
	Indices  []uint16
	// Radius of the bounding sphere centred on the origin.
	Radius float32
}

/**
 * @brief Represents actual geometry in the world: a static vertex and index
 * buffer pair.
 */
type Geometry struct {
	Name         string
	VertexBuffer metadata.VertexBufferHandle
	IndexBuffer  metadata.IndexBufferHandle
	IndexCount   uint32
	Radius       float32
}

type GeometrySystemConfig struct {
	MaxGeometryCount uint32
}

type GeometrySystem struct {
	Config *GeometrySystemConfig
	// Registered geometries by name.
	RegisteredGeometries map[string]*Geometry

	decl     metadata.VertexDecl
	renderer *renderer.Renderer
}

/**
 * @brief Initializes the geometry system and creates the default unit cube
 * and sphere.
 */
func NewGeometrySystem(config *GeometrySystemConfig, r *renderer.Renderer) (*GeometrySystem, error) {
	if config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	gs := &GeometrySystem{
		Config:               config,
		RegisteredGeometries: make(map[string]*Geometry),
		decl:                 MeshVertexDecl(),
		renderer:             r,
	}
	if _, err := gs.Create(GenerateCubeConfig(1, 1, 1, 1, 1, CubeGeometryName)); err != nil {
		return nil, err
	}
	if _, err := gs.Create(GenerateSphereConfig(1, 16, 24, SphereGeometryName)); err != nil {
		return nil, err
	}
	return gs, nil
}

// Decl is the vertex declaration shared by all geometries.
func (gs *GeometrySystem) Decl() metadata.VertexDecl {
	return gs.decl
}

/**
 * @brief Uploads a geometry config and registers it under its name. An
 * existing geometry of the same name is replaced.
 */
func (gs *GeometrySystem) Create(config GeometryConfig) (*Geometry, error) {
	if len(config.Vertices) == 0 || len(config.Indices) == 0 {
		return nil, fmt.Errorf("geometry %q has no vertices or indices", config.Name)
	}
	old, exists := gs.RegisteredGeometries[config.Name]
	if !exists && uint32(len(gs.RegisteredGeometries)) >= gs.Config.MaxGeometryCount {
		return nil, fmt.Errorf("geometry system is full, cannot create %q", config.Name)
	}
	g := &Geometry{
		Name:         config.Name,
		VertexBuffer: gs.renderer.CreateVertexBuffer(metadata.MemoryFromSlice(config.Vertices), gs.decl, metadata.BufferUsageStatic),
		IndexBuffer:  gs.renderer.CreateIndexBuffer(metadata.MemoryFromSlice(config.Indices), metadata.IndexTypeUint16, metadata.BufferUsageStatic),
		IndexCount:   uint32(len(config.Indices)),
		Radius:       config.Radius,
	}
	if exists {
		gs.destroy(old)
	}
	gs.RegisteredGeometries[config.Name] = g
	core.LogDebug("geometry %s created: %d vertices, %d indices", g.Name, len(config.Vertices), g.IndexCount)
	return g, nil
}

// Acquire returns the geometry registered under name.
func (gs *GeometrySystem) Acquire(name string) (*Geometry, error) {
	g, ok := gs.RegisteredGeometries[name]
	if !ok {
		return nil, fmt.Errorf("geometry %q is not registered", name)
	}
	return g, nil
}

func (gs *GeometrySystem) Release(name string) {
	if g, ok := gs.RegisteredGeometries[name]; ok {
		gs.destroy(g)
		delete(gs.RegisteredGeometries, name)
	}
}

// Bind sets the buffers of g on the render item in progress.
func (gs *GeometrySystem) Bind(g *Geometry) {
	gs.renderer.SetVertexBuffer(g.VertexBuffer)
	gs.renderer.SetIndexBuffer(g.IndexBuffer)
}

func (gs *GeometrySystem) destroy(g *Geometry) {
	gs.renderer.DeleteVertexBuffer(g.VertexBuffer)
	gs.renderer.DeleteIndexBuffer(g.IndexBuffer)
}

func (gs *GeometrySystem) Shutdown() error {
	for name, g := range gs.RegisteredGeometries {
		gs.destroy(g)
		delete(gs.RegisteredGeometries, name)
	}
	return nil
}

// GenerateCubeConfig builds a box centred on the origin with outward
// facing, counter clockwise triangles.
func GenerateCubeConfig(width, height, depth, tileX, tileY float32, name string) GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}
	if tileX == 0 {
		tileX = 1.0
	}
	if tileY == 0 {
		tileY = 1.0
	}

	hx, hy, hz := width*0.5, height*0.5, depth*0.5
	type face struct {
		normal  [3]float32
		corners [4][3]float32
	}
	// Corners are ordered bottom left, top right, top left, bottom right as
	// seen from outside.
	faces := [6]face{
		{[3]float32{0, 0, 1}, [4][3]float32{{-hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}, {hx, -hy, hz}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}, {-hx, -hy, -hz}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-hx, -hy, -hz}, {-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, hz}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{hx, -hy, hz}, {hx, hy, -hz}, {hx, hy, hz}, {hx, -hy, -hz}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-hx, -hy, -hz}, {hx, -hy, hz}, {-hx, -hy, hz}, {hx, -hy, -hz}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}, {hx, hy, hz}}},
	}
	uvs := [4][2]float32{{0, 0}, {tileX, tileY}, {0, tileY}, {tileX, 0}}

	config := GeometryConfig{
		Name:     name,
		Vertices: make([]MeshVertex, 0, 4*6),
		Indices:  make([]uint16, 0, 6*6),
		Radius:   mgl32.Vec3{hx, hy, hz}.Len(),
	}
	for i, f := range faces {
		for c := range f.corners {
			config.Vertices = append(config.Vertices, MeshVertex{Position: f.corners[c], Normal: f.normal, Texcoord: uvs[c]})
		}
		v := uint16(i * 4)
		config.Indices = append(config.Indices, v+0, v+1, v+2, v+0, v+3, v+1)
	}
	return config
}

// GenerateSphereConfig builds a UV sphere with rings latitude bands and
// segments longitude bands.
func GenerateSphereConfig(radius float32, rings, segments uint16, name string) GeometryConfig {
	rings = max(rings, 2)
	segments = max(segments, 3)
	config := GeometryConfig{
		Name:     name,
		Vertices: make([]MeshVertex, 0, int(rings+1)*int(segments+1)),
		Indices:  make([]uint16, 0, int(rings)*int(segments)*6),
		Radius:   radius,
	}
	for r := uint16(0); r <= rings; r++ {
		theta := gomath.Pi * float64(r) / float64(rings)
		for s := uint16(0); s <= segments; s++ {
			phi := 2 * gomath.Pi * float64(s) / float64(segments)
			n := [3]float32{
				float32(gomath.Sin(theta) * gomath.Cos(phi)),
				float32(gomath.Cos(theta)),
				float32(gomath.Sin(theta) * gomath.Sin(phi)),
			}
			config.Vertices = append(config.Vertices, MeshVertex{
				Position: [3]float32{n[0] * radius, n[1] * radius, n[2] * radius},
				Normal:   n,
				Texcoord: [2]float32{float32(s) / float32(segments), float32(r) / float32(rings)},
			})
		}
	}
	stride := segments + 1
	for r := uint16(0); r < rings; r++ {
		for s := uint16(0); s < segments; s++ {
			a := r*stride + s
			b := a + stride
			config.Indices = append(config.Indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return config
}
