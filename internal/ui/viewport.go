// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ui/viewport.go
// Summary: Terminal presenter drawing composed frames with half-block cells.
// Usage: Passed to the session manager as its render.Presenter; the player draws it.
// Notes: Each cell shows two pixels: the upper one as foreground of '▀', the lower as background.

package ui

import (
	"image"
	"image/color"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"

	"github.com/framegrace/texelar/internal/render"
)

const halfBlock = '▀'

// Viewport keeps the latest presented frame for the UI thread.
type Viewport struct {
	mu      sync.Mutex
	frame   *image.RGBA
	frames  uint64
	refresh chan<- bool
}

// NewViewport returns an empty viewport.
func NewViewport() *Viewport { return &Viewport{} }

// SetRefreshNotifier installs the channel signalled after each presented frame.
func (v *Viewport) SetRefreshNotifier(ch chan<- bool) {
	v.mu.Lock()
	v.refresh = ch
	v.mu.Unlock()
}

// Present copies the frame; the composer may reuse its buffer.
func (v *Viewport) Present(frame *image.RGBA) error {
	v.mu.Lock()
	if frame == nil {
		v.frame = nil
	} else {
		if v.frame == nil || v.frame.Bounds() != frame.Bounds() {
			v.frame = image.NewRGBA(frame.Bounds())
		}
		copy(v.frame.Pix, frame.Pix)
	}
	v.frames++
	ch := v.refresh
	v.mu.Unlock()

	if ch != nil {
		select {
		case ch <- true:
		default:
		}
	}
	return nil
}

// Clear drops the held frame, used when a session ends.
func (v *Viewport) Clear() {
	v.mu.Lock()
	v.frame = nil
	v.mu.Unlock()
}

func (v *Viewport) frameCount() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

func (v *Viewport) hasFrame() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame != nil
}

// Draw renders the current frame into the cell rectangle, letterboxed.
// It returns false when there is nothing to draw.
func (v *Viewport) Draw(s tcell.Screen, area Rect) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frame == nil {
		return false
	}
	drawImage(s, area, v.frame)
	return true
}

// Rect is a rectangle in screen cells.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the cell lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// fit returns the largest pixel size of aspect srcW:srcH within w x h.
func fit(srcW, srcH, w, h int) (int, int) {
	if srcW <= 0 || srcH <= 0 || w <= 0 || h <= 0 {
		return 0, 0
	}
	if srcW*h > srcH*w {
		return w, max(1, srcH*w/srcW)
	}
	return max(1, srcW*h/srcH), h
}

// drawImage scales img into area, two pixel rows per cell row.
func drawImage(s tcell.Screen, area Rect, img image.Image) {
	b := img.Bounds()
	pw, ph := fit(b.Dx(), b.Dy(), area.W, area.H*2)
	if pw == 0 || ph == 0 {
		return
	}
	dst := image.NewRGBA(image.Rect(0, 0, pw, ph+ph%2))
	draw.ApproxBiLinear.Scale(dst, image.Rect(0, 0, pw, ph), img, b, draw.Src, nil)

	offX := area.X + (area.W-pw)/2
	offY := area.Y + (area.H-(ph+1)/2)/2
	for cy := 0; cy*2 < ph; cy++ {
		for cx := 0; cx < pw; cx++ {
			top := dst.RGBAAt(cx, cy*2)
			bottom := dst.RGBAAt(cx, cy*2+1)
			style := tcell.StyleDefault.Foreground(rgb(top)).Background(rgb(bottom))
			s.SetContent(offX+cx, offY+cy, halfBlock, nil, style)
		}
	}
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

var _ render.Presenter = (*Viewport)(nil)
