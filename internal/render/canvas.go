// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/render/canvas.go
// Summary: Software rendering context drawing camera frames and anchor visuals.
// Usage: Used by the scripted tracking engine and tests in place of a GPU context.
// Notes: Planes are tinted by their video clock since decoding is out of scope.

package render

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
)

// Canvas is a software Context backed by a reusable RGBA buffer.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	buf    *image.RGBA
	lost   bool
}

// NewCanvas allocates a canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	if width <= 0 {
		width = 320
	}
	if height <= 0 {
		height = 240
	}
	return &Canvas{
		width:  width,
		height: height,
		buf:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

func (c *Canvas) Size() (int, int) { return c.width, c.height }

// Render draws the camera background and every visible group. The returned
// image is owned by the caller.
func (c *Canvas) Render(scene *Scene, cam *Camera) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lost {
		return nil, ErrContextLost
	}
	bounds := c.buf.Bounds()
	draw.Draw(c.buf, bounds, image.Transparent, image.Point{}, draw.Src)
	if cam != nil {
		if frame := cam.Frame(); frame != nil {
			draw.ApproxBiLinear.Scale(c.buf, bounds, frame, frame.Bounds(), draw.Src, nil)
		}
	}
	if scene != nil {
		for _, g := range scene.Groups() {
			if g.Visible() {
				c.drawGroup(g)
			}
		}
	}
	out := image.NewRGBA(bounds)
	copy(out.Pix, c.buf.Pix)
	return out, nil
}

func (c *Canvas) drawGroup(g *Group) {
	cx, cy, extent := g.Pose()
	px := cx * float64(c.width)
	py := cy * float64(c.height)
	unit := extent * float64(c.width)
	for _, n := range g.Nodes() {
		switch node := n.(type) {
		case *Plane:
			w := node.Width * unit
			h := node.Height * unit
			rect := image.Rect(int(px-w/2), int(py-h/2), int(px+w/2), int(py+h/2))
			hue := 0.0
			if node.Video != nil {
				hue = math.Mod(node.Video.Position().Seconds()*0.25, 1)
			}
			fill := image.NewUniform(hsv(hue, 0.6, 0.9))
			mask := image.NewUniform(color.Alpha{A: uint8(clamp01(node.Opacity) * 255)})
			draw.DrawMask(c.buf, rect, fill, image.Point{}, mask, image.Point{}, draw.Over)
		case *ModelNode:
			s := unit * 0.25 * node.Scale.X
			mx := px + node.Position.X*unit
			my := py - node.Position.Y*unit
			c.drawMarker(mx, my, s, node.Rotation.Z)
		}
	}
}

// drawMarker draws a square rotated about its centre.
func (c *Canvas) drawMarker(cx, cy, size, angle float64) {
	if size <= 0 {
		return
	}
	half := size / 2
	sin, cos := math.Sincos(-angle)
	r := int(math.Ceil(half * math.Sqrt2))
	col := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			lx := float64(x)*cos - float64(y)*sin
			ly := float64(x)*sin + float64(y)*cos
			if math.Abs(lx) <= half && math.Abs(ly) <= half {
				c.buf.SetRGBA(int(cx)+x, int(cy)+y, col)
			}
		}
	}
}

// ForceContextLoss releases the pixel buffer; subsequent renders fail.
func (c *Canvas) ForceContextLoss() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lost = true
	c.buf = nil
	return nil
}

// Dispose is equivalent to ForceContextLoss for a software canvas.
func (c *Canvas) Dispose() error {
	return c.ForceContextLoss()
}

func (c *Canvas) Lost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func hsv(h, s, v float64) color.RGBA {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)
	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
