package shaderlib

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v3.2-core/gl"

	"nitro-core-dx/internal/reactive"
)

// CompileProgram compiles and links a vertex+fragment GLSL program,
// returning the linked program's GL name. Both vertexSrc and fragSrc
// must be NUL-terminated (see VertexShaderSource, WrapFragment).
//
// Grounded on the newProgram/compileShader idiom both other_examples
// go-gl renderers build on top of (01a329cf_richinsley-goshadertoy's
// SoundShaderRenderer and 93f935db_mrigankad-gorenderengine's
// ParticleRenderer each call an equivalent helper rather than inlining
// shader compilation at every call site).
func CompileProgram(vertexSrc, fragSrc string) (uint32, error) {
	vs, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		logMsg := programInfoLog(prog)
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %s", logMsg)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		logMsg := shaderInfoLog(shader)
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %s", logMsg)
	}
	return shader, nil
}

func shaderInfoLog(shader uint32) string {
	var logLen int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(logLen))
	gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
	return log
}

func programInfoLog(prog uint32) string {
	var logLen int32
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(logLen))
	gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
	return log
}

// SetUniforms binds prog's fixed uniform block (the header WrapFragment
// declares) from u. The caller must have already called gl.UseProgram(prog).
// Uniforms the linker stripped because a shader never references them
// resolve to location -1 and are silently skipped, matching how every
// go-gl renderer in the pack treats optional uniforms.
func SetUniforms(prog uint32, u reactive.ShaderUniforms) {
	setFloat(prog, "time", u.Time)
	setVec2(prog, "resolution", u.ResolutionX, u.ResolutionY)
	setVec2(prog, "mouse", u.MouseX, u.MouseY)
	setFloat(prog, "speed", u.Speed)
	setFloat(prog, "bass", u.Bass)
	setFloat(prog, "lowMid", u.LowMid)
	setFloat(prog, "mid", u.Mid)
	setFloat(prog, "highs", u.Highs)
	setFloat(prog, "level", u.Level)
	setFloat(prog, "kickEnv", u.KickEnv)
	setFloat(prog, "kickPulse", u.KickPulse)
	setFloat(prog, "beat", u.Beat)
	setFloat(prog, "energyFast", u.EnergyFast)
	setFloat(prog, "energySlow", u.EnergySlow)
}

func setFloat(prog uint32, name string, v float64) {
	loc := gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	if loc >= 0 {
		gl.Uniform1f(loc, float32(v))
	}
}

func setVec2(prog uint32, name string, x, y float64) {
	loc := gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	if loc >= 0 {
		gl.Uniform2f(loc, float32(x), float32(y))
	}
}
