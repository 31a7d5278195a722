// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/render/context.go
// Summary: Rendering context boundary, DOM-like container and frame presenters.

package render

import (
	"errors"
	"image"
	"sync"
)

// ErrContextLost is returned by a context whose resources were released.
var ErrContextLost = errors.New("render: context lost")

// Context is the rendering context of one session. It owns the underlying
// GPU (or software) resources until ForceContextLoss/Dispose release them.
type Context interface {
	Render(scene *Scene, cam *Camera) (*image.RGBA, error)
	Size() (width, height int)
	ForceContextLoss() error
	Dispose() error
	Lost() bool
}

// Presenter receives every composed frame.
type Presenter interface {
	Present(frame *image.RGBA) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(frame *image.RGBA) error

func (f PresenterFunc) Present(frame *image.RGBA) error { return f(frame) }

// Container is the surface a session renders into. Children are created by the
// session, overlays are attached by the tracking engine (e.g. scanning hints).
type Container struct {
	mu       sync.RWMutex
	children []string
	overlays []string
}

// NewContainer returns an empty container.
func NewContainer() *Container { return &Container{} }

func (c *Container) AddChild(id string) {
	c.mu.Lock()
	c.children = append(c.children, id)
	c.mu.Unlock()
}

func (c *Container) AddOverlay(id string) {
	c.mu.Lock()
	c.overlays = append(c.overlays, id)
	c.mu.Unlock()
}

// Children returns the container contents.
func (c *Container) Children() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.children...)
}

// Overlays returns the overlay nodes attached by the engine.
func (c *Container) Overlays() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.overlays...)
}

// Clear removes the container contents.
func (c *Container) Clear() {
	c.mu.Lock()
	c.children = nil
	c.mu.Unlock()
}

// RemoveOverlays removes every overlay node.
func (c *Container) RemoveOverlays() {
	c.mu.Lock()
	c.overlays = nil
	c.mu.Unlock()
}

// Empty reports whether no children and no overlays remain.
func (c *Container) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.children) == 0 && len(c.overlays) == 0
}
