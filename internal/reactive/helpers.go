package reactive

import "math"

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CalcSyntheticMouse produces a Lissajous-like (x, y) pair in [0,1]^2 that
// shaders consume in place of a real pointer (§4.1). The curve's radius
// breathes with energySlow, and bass/mid/beatPhase perturb the two axes
// independently so the motion reads as "organic" rather than a clean ellipse.
func CalcSyntheticMouse(t, energySlow, bass, mid, beatPhase float64) (x, y float64) {
	radius := 0.12 + energySlow*0.18
	x = 0.5 + math.Sin(t)*radius*(1+bass*0.3) + beatPhase*0.1
	y = 0.5 + math.Sin(2*t)*radius*(1+mid*0.2)
	return clamp(x, 0, 1), clamp(y, 0, 1)
}

// AspectRect is a centered placement rectangle in buffer-space pixels.
type AspectRect struct {
	X, Y, W, H float64
}

// Center returns the rectangle's center point.
func (r AspectRect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// CalcAspectRatioDimensions positions an imgW x imgH image inside a
// bufW x bufH buffer, centered. cover=false letterboxes (the rect fits
// entirely inside the buffer); cover=true fills-and-crops (the rect fully
// covers the buffer) (§4.1, §8.8).
func CalcAspectRatioDimensions(imgW, imgH, bufW, bufH int, cover bool) AspectRect {
	if imgW <= 0 || imgH <= 0 || bufW <= 0 || bufH <= 0 {
		return AspectRect{X: 0, Y: 0, W: float64(bufW), H: float64(bufH)}
	}

	scaleW := float64(bufW) / float64(imgW)
	scaleH := float64(bufH) / float64(imgH)

	scale := math.Min(scaleW, scaleH) // contain: smaller scale, whole image fits
	if cover {
		scale = math.Max(scaleW, scaleH) // cover: larger scale, image overflows and crops
	}

	w := float64(imgW) * scale
	h := float64(imgH) * scale

	x := (float64(bufW) - w) / 2
	y := (float64(bufH) - h) / 2
	return AspectRect{X: x, Y: y, W: w, H: h}
}

// EaseInOutQuad is a symmetric quadratic ease used by the image crossfade
// (§4.1, §4.7). t is clamped to [0,1] before easing.
func EaseInOutQuad(t float64) float64 {
	t = clamp(t, 0, 1)
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}
