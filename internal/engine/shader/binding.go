package shader

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/terratile/internal/engine/terrain"
	"github.com/Faultbox/terratile/internal/engine/texture"
)

// device is the slice of the GL API a ProgramBinding drives.
type device interface {
	UseProgram(program uint32)
	UniformLocation(program uint32, name string) int32
	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	UploadTexture(img *image.RGBA) uint32
	BindTexture(unit uint32, tex uint32)
	DeleteTexture(tex uint32)
}

// ProgramBinding pushes terrain uniforms to a linked GL program.
//
// Ints become Uniform1i and float32s Uniform1f. Textures are uploaded once per
// handle and bound to a texture unit reserved for the uniform's name. A texture
// no uniform refers to anymore is deleted from the GPU.
//
// Several bindings may share one program; Use restores this binding's values.
//
// A ProgramBinding must be used on the thread that owns the GL context.
type ProgramBinding struct {
	program uint32
	dev     device
	log     *zap.Logger

	locations map[string]int32
	ints      map[string]int32
	floats    map[string]float32
	units     map[string]uint32
	bound     map[string]*terrain.Texture
	uploaded  map[*terrain.Texture]uint32
}

// NewProgramBinding wraps a linked program.
func NewProgramBinding(program uint32, log *zap.Logger) *ProgramBinding {
	return newProgramBinding(program, glDevice{}, log)
}

func newProgramBinding(program uint32, dev device, log *zap.Logger) *ProgramBinding {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgramBinding{
		program:   program,
		dev:       dev,
		log:       log,
		locations: make(map[string]int32),
		ints:      make(map[string]int32),
		floats:    make(map[string]float32),
		units:     make(map[string]uint32),
		bound:     make(map[string]*terrain.Texture),
		uploaded:  make(map[*terrain.Texture]uint32),
	}
}

// Program returns the GL program ID.
func (b *ProgramBinding) Program() uint32 { return b.program }

// SetParameter implements terrain.ShaderBinding.
func (b *ProgramBinding) SetParameter(name string, value any) {
	b.dev.UseProgram(b.program)
	loc := b.location(name)

	switch v := value.(type) {
	case int:
		b.setInt(name, loc, int32(v))
	case int32:
		b.setInt(name, loc, v)
	case float32:
		b.setFloat(name, loc, v)
	case float64:
		b.setFloat(name, loc, float32(v))
	case *terrain.Texture:
		b.setTexture(name, loc, v)
	default:
		b.log.Warn("unsupported uniform type",
			zap.String("uniform", name),
			zap.String("type", fmt.Sprintf("%T", value)))
	}
}

// Use makes the program current and pushes every stored value again. Call it
// before drawing.
func (b *ProgramBinding) Use() {
	b.dev.UseProgram(b.program)
	for name, v := range b.ints {
		b.dev.Uniform1i(b.locations[name], v)
	}
	for name, v := range b.floats {
		b.dev.Uniform1f(b.locations[name], v)
	}
	for name, tex := range b.bound {
		unit := b.units[name]
		b.dev.BindTexture(unit, b.uploaded[tex])
		b.dev.Uniform1i(b.locations[name], int32(unit))
	}
}

// Release deletes every uploaded texture. The program itself is left alone.
func (b *ProgramBinding) Release() {
	for tex, id := range b.uploaded {
		b.dev.DeleteTexture(id)
		delete(b.uploaded, tex)
	}
	clear(b.bound)
}

func (b *ProgramBinding) location(name string) int32 {
	if loc, ok := b.locations[name]; ok {
		return loc
	}
	loc := b.dev.UniformLocation(b.program, name)
	if loc < 0 {
		b.log.Debug("uniform not active in program", zap.String("uniform", name))
	}
	b.locations[name] = loc
	return loc
}

func (b *ProgramBinding) setInt(name string, loc, v int32) {
	b.ints[name] = v
	b.dev.Uniform1i(loc, v)
}

func (b *ProgramBinding) setFloat(name string, loc int32, v float32) {
	b.floats[name] = v
	b.dev.Uniform1f(loc, v)
}

func (b *ProgramBinding) setTexture(name string, loc int32, tex *terrain.Texture) {
	prev := b.bound[name]
	if tex == nil {
		delete(b.bound, name)
		b.releaseUnused(prev)
		return
	}

	unit, ok := b.units[name]
	if !ok {
		unit = uint32(len(b.units))
		b.units[name] = unit
	}

	id, ok := b.uploaded[tex]
	if !ok {
		id = b.dev.UploadTexture(texture.ToRGBA(tex.Image()))
		b.uploaded[tex] = id
		b.log.Debug("texture uploaded",
			zap.String("uniform", name),
			zap.String("texture", tex.Name()),
			zap.Uint32("id", id))
	}

	b.bound[name] = tex
	b.dev.BindTexture(unit, id)
	b.dev.Uniform1i(loc, int32(unit))

	if prev != tex {
		b.releaseUnused(prev)
	}
}

func (b *ProgramBinding) releaseUnused(tex *terrain.Texture) {
	if tex == nil {
		return
	}
	for _, other := range b.bound {
		if other == tex {
			return
		}
	}
	if id, ok := b.uploaded[tex]; ok {
		b.dev.DeleteTexture(id)
		delete(b.uploaded, tex)
	}
}

// glDevice issues real GL calls.
type glDevice struct{}

func (glDevice) UseProgram(program uint32) { gl.UseProgram(program) }

func (glDevice) UniformLocation(program uint32, name string) int32 {
	return GetUniform(program, name)
}

func (glDevice) Uniform1i(loc int32, v int32) { gl.Uniform1i(loc, v) }

func (glDevice) Uniform1f(loc int32, v float32) { gl.Uniform1f(loc, v) }

func (glDevice) UploadTexture(img *image.RGBA) uint32 {
	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)

	var pix unsafe.Pointer
	if len(img.Pix) > 0 {
		pix = unsafe.Pointer(&img.Pix[0])
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(img.Bounds().Dx()), int32(img.Bounds().Dy()),
		0, gl.RGBA, gl.UNSIGNED_BYTE, pix)

	// No mipmaps: the vertex stage samples level 0.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	return texID
}

func (glDevice) BindTexture(unit uint32, tex uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
}

func (glDevice) DeleteTexture(tex uint32) { gl.DeleteTextures(1, &tex) }
