// Package renderer draws terrain tiles for the preview window.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/terratile/internal/engine/renderer/shaders"
	"github.com/Faultbox/terratile/internal/engine/shader"
	"github.com/Faultbox/terratile/internal/engine/terrain"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	// Light direction in world space; it does not need to be normalized.
	LightDir mgl32.Vec3
	// GridWidth is the chunk grid line width as a fraction of a chunk.
	GridWidth float32
}

// DefaultConfig returns the preview defaults.
func DefaultConfig(width, height int) Config {
	return Config{
		Width:     width,
		Height:    height,
		LightDir:  mgl32.Vec3{0.5, 1.0, 0.3},
		GridWidth: 0.01,
	}
}

// Renderer draws one plane mesh with the terrain program. It implements
// terrain.MeshTarget so a tile can push its mesh and material straight to it.
type Renderer struct {
	config Config
	log    *zap.Logger

	program     uint32
	locViewProj int32
	locLightDir int32
	locGrid     int32

	vao, vbo, ebo uint32
	indexCount    int32
	bounds        terrain.Bounds

	material *shader.ProgramBinding
}

// New creates a renderer.
// Must be called after the OpenGL context is created.
func New(cfg Config, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Renderer{config: cfg, log: log}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.MULTISAMPLE)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	program, err := shader.CompileProgram(shaders.TerrainVertexShader, shaders.TerrainFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("terrain program: %w", err)
	}
	r.program = program
	r.locViewProj = shader.GetUniform(program, "uViewProj")
	r.locLightDir = shader.GetUniform(program, "uLightDir")
	r.locGrid = shader.GetUniform(program, "uGridWidth")

	r.Resize(cfg.Width, cfg.Height)
	r.log.Debug("terrain program created", zap.Uint32("program", program))
	return r, nil
}

// NewMaterial returns a binding for the terrain program. Each tile should get
// its own.
func (r *Renderer) NewMaterial() *shader.ProgramBinding {
	return shader.NewProgramBinding(r.program, r.log)
}

// SetMesh implements terrain.MeshTarget. The geometry is uploaded immediately,
// replacing the previous mesh; nil clears it.
func (r *Renderer) SetMesh(mesh *terrain.PlaneMesh) {
	r.deleteMesh()
	if mesh == nil {
		return
	}

	geo := mesh.Geometry()
	if len(geo.Vertices) == 0 {
		return
	}
	r.bounds = geo.Bounds

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)

	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(geo.Vertices)*int(unsafe.Sizeof(terrain.Vertex{})), gl.Ptr(geo.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &r.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(geo.Indices)*4, gl.Ptr(geo.Indices), gl.STATIC_DRAW)

	// terrain.Vertex: Position(12) + Normal(12) + TexCoord(8) = 32 bytes
	stride := int32(unsafe.Sizeof(terrain.Vertex{}))

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)

	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)

	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 24)

	gl.BindVertexArray(0)
	r.indexCount = int32(len(geo.Indices))

	r.log.Debug("mesh uploaded",
		zap.Int("vertices", len(geo.Vertices)),
		zap.Int("indices", len(geo.Indices)),
	)
}

// SetMaterial implements terrain.MeshTarget. Bindings not created by
// NewMaterial are ignored.
func (r *Renderer) SetMaterial(binding terrain.ShaderBinding) {
	pb, ok := binding.(*shader.ProgramBinding)
	if binding != nil && !ok {
		r.log.Warn("material is not a program binding", zap.String("type", fmt.Sprintf("%T", binding)))
	}
	r.material = pb
}

// Bounds returns the bounds of the current mesh before displacement.
func (r *Renderer) Bounds() terrain.Bounds { return r.bounds }

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Size returns the viewport size.
func (r *Renderer) Size() (int, int) { return r.config.Width, r.config.Height }

// Begin clears the frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Render draws the current mesh with the current material. Nothing is drawn
// until both are set.
func (r *Renderer) Render(viewProj mgl32.Mat4) {
	if r.vao == 0 || r.material == nil {
		return
	}

	r.material.Use()
	gl.UniformMatrix4fv(r.locViewProj, 1, false, &viewProj[0])
	light := r.config.LightDir
	gl.Uniform3f(r.locLightDir, light.X(), light.Y(), light.Z())
	gl.Uniform1f(r.locGrid, r.config.GridWidth)

	gl.BindVertexArray(r.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, r.indexCount, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
}

// ReadPixels returns the current framebuffer as RGBA bytes, bottom row first.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, w, h
}

// Close frees the mesh and the program.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.deleteMesh()
	if r.program != 0 {
		gl.DeleteProgram(r.program)
		r.program = 0
	}
}

func (r *Renderer) deleteMesh() {
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
	}
	if r.ebo != 0 {
		gl.DeleteBuffers(1, &r.ebo)
	}
	r.vao, r.vbo, r.ebo, r.indexCount = 0, 0, 0, 0
	r.bounds = terrain.Bounds{}
}
