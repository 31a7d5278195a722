// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/effects/chromatic.go
// Summary: Chromatic aberration pass with block glitch displacement.
// Usage: Second stage of the default chain; driven by the amount and glitchAmount uniforms.
// Notes: Works in normalised UV space so results do not depend on frame size.

package effects

import (
	"image"
	"math"
)

const defaultBlockSize = 0.05

// ChromaticPass offsets red and blue channels along a time-rotating angle.
type ChromaticPass struct {
	BlockSize float64
}

func newChromaticPass(blockSize float64) *ChromaticPass {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	return &ChromaticPass{BlockSize: blockSize}
}

func (p *ChromaticPass) ID() string { return "chromatic" }

func (p *ChromaticPass) Process(in *image.RGBA, u Values) (*image.RGBA, error) {
	if in == nil {
		return nil, errNoInput
	}
	if u.Amount == 0 && u.GlitchAmount <= 0 {
		return in, nil
	}
	b := in.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return in, nil
	}
	out := image.NewRGBA(b)
	t := u.Time
	block := p.BlockSize
	if block <= 0 {
		block = defaultBlockSize
	}

	redX, redY := u.Amount*math.Sin(t*2), u.Amount*math.Cos(t*2)
	blueX, blueY := u.Amount*math.Sin(t+4), u.Amount*math.Cos(t+4)
	glitchX, glitchY := math.Sin(t*5)*block*0.5, math.Cos(t*3)*block*0.5

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			uvx := (float64(x) + 0.5) / float64(w)
			uvy := (float64(y) + 0.5) / float64(h)

			if u.GlitchAmount > 0 {
				bx := math.Floor(uvx/block) * block
				by := math.Floor(uvy/block) * block
				if Random(bx+t, by+t) < u.GlitchAmount {
					uvx += glitchX
					uvy += glitchY
				}
			}

			ri := sampleOffset(in, uvx+redX, uvy+redY)
			gi := sampleOffset(in, uvx, uvy)
			bi := sampleOffset(in, uvx-blueX, uvy-blueY)

			o := out.PixOffset(b.Min.X+x, b.Min.Y+y)
			out.Pix[o+0] = in.Pix[ri+0]
			out.Pix[o+1] = in.Pix[gi+1]
			out.Pix[o+2] = in.Pix[bi+2]
			out.Pix[o+3] = in.Pix[gi+3]
		}
	}
	return out, nil
}

// sampleOffset returns the pixel offset of the nearest texel, clamped to edge.
func sampleOffset(img *image.RGBA, u, v float64) int {
	b := img.Bounds()
	x := clampInt(int(math.Floor(u*float64(b.Dx()))), 0, b.Dx()-1)
	y := clampInt(int(math.Floor(v*float64(b.Dy()))), 0, b.Dy()-1)
	return img.PixOffset(b.Min.X+x, b.Min.Y+y)
}

// Random is the shader hash: fract(sin(dot(co, (12.9898, 78.233))) * 43758.5453).
// It always returns a value in [0, 1).
func Random(x, y float64) float64 {
	v := math.Sin(x*12.9898+y*78.233) * 43758.5453
	f := v - math.Floor(v)
	if f >= 1 {
		return 0
	}
	return f
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
