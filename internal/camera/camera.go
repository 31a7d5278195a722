// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/camera/camera.go
// Summary: Camera sources feeding the tracking engine and the classifier selector.
// Usage: The CLI picks a directory source (-camera DIR) or the synthetic pattern.
// Notes: Real device capture lives outside the player; these sources replay frames.

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
)

// ErrUnavailable is returned when the camera cannot deliver frames, the
// equivalent of a denied camera permission.
var ErrUnavailable = errors.New("camera: unavailable")

// Source captures frames on demand.
type Source interface {
	Capture(ctx context.Context) (image.Image, error)
	Close() error
}

// Directory replays the images of a folder in name order, looping.
type Directory struct {
	mu     sync.Mutex
	files  []string
	next   int
	closed bool
}

// OpenDirectory lists the png/jpeg/webp files of dir.
func OpenDirectory(dir string) (*Directory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".webp":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", ErrUnavailable, dir)
	}
	sort.Strings(files)
	return &Directory{files: files}, nil
}

func (d *Directory) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrUnavailable
	}
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	d.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("camera: decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (d *Directory) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Pattern is a synthetic source drawing moving colour bars.
type Pattern struct {
	Width  int
	Height int
	start  time.Time
	once   sync.Once
}

// NewPattern returns a synthetic camera of the given size.
func NewPattern(width, height int) *Pattern {
	return &Pattern{Width: width, Height: height}
}

func (p *Pattern) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.once.Do(func() { p.start = time.Now() })
	if p.Width <= 0 || p.Height <= 0 {
		return image.NewRGBA(image.Rectangle{}), nil
	}
	phase := time.Since(p.start).Seconds()
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := 0.5 + 0.5*math.Sin(float64(x)*0.08+phase)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(40 + 60*v),
				G: uint8(50 + float64(y*90/p.Height)),
				B: uint8(70 + 80*(1-v)),
				A: 255,
			})
		}
	}
	return img, nil
}

func (p *Pattern) Close() error { return nil }
