package shaderlib

// defaultShaderBody is always compilable and always available, so the
// shader tile never has nothing to render (§4.4 step 2, scenario E). It
// paints a slowly rotating plasma-ish field modulated by bass/level.
const defaultShaderBody = `
vec2 uv = gl_FragCoord.xy / resolution;
float d = length(uv - vec2(0.5)) * (3.0 + bass * 2.0);
float a = atan(uv.y - 0.5, uv.x - 0.5) + time * (0.2 + speed * 0.5);
float wave = sin(d * 6.0 - time * 2.0) * 0.5 + 0.5;
float r = wave * (0.4 + bass * 0.6);
float g = sin(a * 3.0 + time) * 0.5 + 0.5;
float b = level * 0.6 + kickEnv * 0.4;
fragColor = vec4(r, g * (0.3 + level * 0.7), b, 1.0);
`

// defaultMaskBody renders a radial vignette modulated by bass/level/kickEnv
// (§4.4 "Mask tile" default), always producing a result the mask tile's
// luminance reduction turns grayscale regardless of what a shader author
// intended.
const defaultMaskBody = `
vec2 uv = gl_FragCoord.xy / resolution;
float d = length(uv - vec2(0.5));
float glow = 1.0 - smoothstep(0.15, 0.6, d);
float pulse = glow * (0.5 + bass * 0.3 + level * 0.2 + kickEnv * 0.3);
fragColor = vec4(vec3(pulse), 1.0);
`

// DefaultShaderSource returns the always-compilable built-in generator
// shader's full GLSL source, wrapped and ready for CompileProgram.
func DefaultShaderSource() string { return WrapFragment(defaultShaderBody) }

// DefaultMaskSource returns the always-compilable built-in mask shader's
// full GLSL source, wrapped and ready for CompileProgram.
func DefaultMaskSource() string { return WrapFragment(defaultMaskBody) }
