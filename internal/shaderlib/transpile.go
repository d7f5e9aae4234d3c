package shaderlib

import (
	"regexp"
	"strings"
)

// VertexShaderSource is the fullscreen-quad vertex shader every shader and
// mask program links against (§4.4 step 2 "wrap the fragment body in a
// standard vertex+fragment pair"). It passes a clip-space position
// through unchanged for a 4-vertex triangle-strip draw spanning the
// target.
const VertexShaderSource = `#version 330 core
layout (location = 0) in vec2 inPos;
void main() {
    gl_Position = vec4(inPos, 0.0, 1.0);
}
` + "\x00"

// fragmentHeader declares the fixed uniform block every shader/mask
// program receives (§6) and the core-profile color output that
// gl_FragColor aliased to under compatibility-profile GLSL.
const fragmentHeader = `#version 330 core
out vec4 fragColor;

uniform float time;
uniform vec2  resolution;
uniform vec2  mouse;
uniform float speed;
uniform float bass;
uniform float lowMid;
uniform float mid;
uniform float highs;
uniform float level;
uniform float kickEnv;
uniform float kickPulse;
uniform float beat;
uniform float energyFast;
uniform float energySlow;

`

var (
	reLineComment  = regexp.MustCompile(`//[^\n]*`)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reGLFragColor  = regexp.MustCompile(`\bgl_FragColor\b`)
	reTexture2D    = regexp.MustCompile(`\btexture2D\s*\(`)
	reHasMain      = regexp.MustCompile(`\bvoid\s+main\s*\(`)
)

// WrapFragment turns a shader author's fragment body into a complete,
// compilable GLSL 330 core fragment shader exposing the fixed uniform
// block (§4.4 step 2). Two legacy GLSL ES spellings common in
// Shadertoy-style snippets are rewritten to their core-profile
// equivalents — gl_FragColor to the declared fragColor output, texture2D
// to texture — since this engine always targets desktop GL 3.3 core;
// everything else passes through untouched, and any remaining
// incompatibility surfaces as a real compile error from the driver
// (§4.4 step 4) rather than a guess made here.
//
// A body that already defines its own "void main" is assumed to be a
// complete shader past the header and is appended as-is; otherwise it is
// wrapped in a "void main() { ... }" that must assign fragColor.
func WrapFragment(src string) string {
	s := reBlockComment.ReplaceAllString(src, "")
	s = reLineComment.ReplaceAllString(s, "")
	s = reTexture2D.ReplaceAllString(s, "texture(")
	s = reGLFragColor.ReplaceAllString(s, "fragColor")
	s = strings.TrimSpace(s)

	var body string
	if reHasMain.MatchString(s) {
		body = s
	} else {
		body = "void main() {\n" + s + "\n}\n"
	}
	return fragmentHeader + body + "\x00"
}
