package glmarkaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glmark"
)

// The HSV conversion and interpolation logic in this file is taken from Esme Lamb's
// (@dedelala) color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

// ColorGradient returns a function interpolating between c0 at t=0 and c1 at
// t=1 through HSV space along the shortest hue path. t is clamped to [0, 1].
func ColorGradient(c0, c1 color.Color) func(t float32) color.Color {
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	return func(t float32) color.Color {
		if t <= 0 {
			return c0
		} else if t >= 1 {
			return c1
		}
		h, s, v := interpHSV(h0, s0, v0, h1, s1, v1, t)
		c := rgbToC(hsvToRGB(h, s, v))
		return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
	}
}

// Palette returns n Color input values evenly spaced along the gradient from c0 to c1.
func Palette(n int, c0, c1 color.Color) [][]float64 {
	grad := ColorGradient(c0, c1)
	values := make([][]float64, n)
	for i := range values {
		var t float32
		if n > 1 {
			t = float32(i) / float32(n-1)
		}
		values[i] = glmark.ColorValue(grad(t))
	}
	return values
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = interp(h0, h1, t)
	if h > 1 {
		h -= 1
	}
	s = interp(s0, s1, t)
	v = interp(v0, v1, t)
	return h, s, v
}

func interp(a, b, t float32) float32 { return a + (b-a)*t }

func clamp01(v float32) float32 { return min(max(v, 0), 1) }

func colorToHSV(c color.Color) (h, s, v float32) {
	r0, g0, b0, _ := c.RGBA()
	return rgbToHSV(float32(r0>>8)/math.MaxUint8, float32(g0>>8)/math.MaxUint8, float32(b0>>8)/math.MaxUint8)
}

// rgbToC packs r, g and b on the range 0.0 to 1.0 into the least significant
// 24 bits of a uint32. Inputs are clamped.
func rgbToC(r, g, b float32) (c uint32) {
	return uint32(clamp01(r)*math.MaxUint8+0.5)<<16 |
		uint32(clamp01(g)*math.MaxUint8+0.5)<<8 |
		uint32(clamp01(b)*math.MaxUint8+0.5)
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	case h > 5.0/6 && h <= 1.0:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts red, green, and blue floating point values on the range
// 0.0 to 1.0 to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
