package shaderlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapFragmentRewritesLegacySpellings(t *testing.T) {
	src := `
		// a comment
		vec3 col = vec3(1.0, 0.0, 0.0);
		gl_FragColor = vec4(texture2D(tex, uv).rgb, 1.0);
	`
	out := WrapFragment(src)
	require.Contains(t, out, "fragColor")
	require.NotContains(t, out, "gl_FragColor")
	require.Contains(t, out, "texture(")
	require.NotContains(t, out, "texture2D(")
}

func TestWrapFragmentDeclaresFixedUniformBlock(t *testing.T) {
	out := WrapFragment("fragColor = vec4(bass, 0.0, 0.0, 1.0);")
	for _, name := range []string{"time", "resolution", "mouse", "speed", "bass", "lowMid", "mid", "highs", "level", "kickEnv", "kickPulse", "beat", "energyFast", "energySlow"} {
		require.Contains(t, out, "uniform", "expected uniform declarations in %s", out)
		require.Contains(t, out, name)
	}
}

func TestWrapFragmentWrapsBodyWithoutMain(t *testing.T) {
	out := WrapFragment("fragColor = vec4(1.0, 0.0, 0.0, 1.0);")
	require.Contains(t, out, "void main()")
	require.True(t, out[len(out)-1] == 0, "source must be NUL-terminated for gl.Str")
}

func TestWrapFragmentPassesThroughExplicitMain(t *testing.T) {
	src := `
		void main() {
			fragColor = vec4(1.0);
		}
	`
	out := WrapFragment(src)
	require.Equal(t, 1, countOccurrences(out, "void main("))
}

func TestDefaultSourcesAreWrapped(t *testing.T) {
	require.Contains(t, DefaultShaderSource(), "void main()")
	require.Contains(t, DefaultMaskSource(), "void main()")
	require.Contains(t, DefaultShaderSource(), "uniform float bass")
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
