// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/render/snapshot.go
// Summary: Presenter keeping the last composed frame, writable to PNG.

package render

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Snapshot is a Presenter that retains the most recent frame.
type Snapshot struct {
	mu     sync.Mutex
	last   *image.RGBA
	frames atomic.Uint64
}

func (s *Snapshot) Present(frame *image.RGBA) error {
	s.mu.Lock()
	s.last = frame
	s.mu.Unlock()
	s.frames.Add(1)
	return nil
}

// Last returns the most recent frame or nil.
func (s *Snapshot) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Frames returns how many frames were presented.
func (s *Snapshot) Frames() uint64 { return s.frames.Load() }

// WritePNG stores the most recent frame at path.
func (s *Snapshot) WritePNG(path string) error {
	frame := s.Last()
	if frame == nil {
		return errors.New("render: no frame presented yet")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Fanout presents each frame to every presenter, returning the first error.
type Fanout []Presenter

func (f Fanout) Present(frame *image.RGBA) error {
	var first error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Present(frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}
