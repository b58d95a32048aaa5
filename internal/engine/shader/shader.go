// Package shader compiles OpenGL programs and binds terrain uniforms to them.
package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Shader build errors.
var (
	ErrCompile = errors.New("shader compile failed")
	ErrLink    = errors.New("program link failed")
)

type stage struct {
	name   string
	kind   uint32
	source string
}

// CompileProgram compiles a vertex and a fragment stage and links them. The
// error wraps ErrCompile or ErrLink and carries the driver's info log.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	stages := []stage{
		{"vertex", gl.VERTEX_SHADER, vertexSrc},
		{"fragment", gl.FRAGMENT_SHADER, fragmentSrc},
	}

	program := gl.CreateProgram()
	for _, st := range stages {
		id, err := compileStage(st)
		if err != nil {
			gl.DeleteProgram(program)
			return 0, err
		}
		gl.AttachShader(program, id)
		// Flagged for deletion; freed once the program is.
		gl.DeleteShader(id)
	}
	gl.LinkProgram(program)

	if !status(program, gl.GetProgramiv, gl.LINK_STATUS) {
		msg := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("%w: %s", ErrLink, msg)
	}
	return program, nil
}

func compileStage(st stage) (uint32, error) {
	id := gl.CreateShader(st.kind)
	src, free := gl.Strs(st.source + "\x00")
	gl.ShaderSource(id, 1, src, nil)
	free()
	gl.CompileShader(id)

	if !status(id, gl.GetShaderiv, gl.COMPILE_STATUS) {
		msg := infoLog(id, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(id)
		return 0, fmt.Errorf("%w: %s stage: %s", ErrCompile, st.name, msg)
	}
	return id, nil
}

type getiv func(id uint32, pname uint32, params *int32)

func status(id uint32, get getiv, pname uint32) bool {
	var ok int32
	get(id, pname, &ok)
	return ok != gl.FALSE
}

func infoLog(id uint32, get getiv, read func(uint32, int32, *int32, *uint8)) string {
	var n int32
	get(id, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return ""
	}
	buf := make([]byte, n)
	read(id, n, nil, &buf[0])
	return trimLog(buf)
}

func trimLog(log []byte) string {
	return strings.TrimRight(string(log), "\x00\n ")
}

// GetUniform returns the location of a uniform, or -1 if the program has no
// active uniform by that name.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
