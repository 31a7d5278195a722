// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/tracking/engine.go
// Summary: Tracking engine boundary: factory, engine lifecycle and anchors.
// Usage: The session manager creates one engine per session through a Factory.
// Notes: Anchors deliver found/lost through handler functions that may be replaced at any time.

package tracking

import (
	"context"
	"sync"

	"github.com/framegrace/texelar/internal/render"
)

// EventKind distinguishes target events.
type EventKind int

const (
	TargetFound EventKind = iota
	TargetLost
)

func (k EventKind) String() string {
	switch k {
	case TargetFound:
		return "found"
	case TargetLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Engine is one image-tracking session bound to a target source.
type Engine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	AddAnchor(targetIndex int) (*Anchor, error)
	Context() render.Context
	Scene() *render.Scene
	Camera() *render.Camera
}

// Factory constructs engines rendering into a container.
type Factory interface {
	Create(container *render.Container, targetSource string) (Engine, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(container *render.Container, targetSource string) (Engine, error)

func (f FactoryFunc) Create(container *render.Container, targetSource string) (Engine, error) {
	return f(container, targetSource)
}

// Anchor is the engine handle of one target image.
type Anchor struct {
	TargetIndex int
	Group       *render.Group

	mu      sync.RWMutex
	onFound func()
	onLost  func()
}

// NewAnchor returns an anchor with an empty content group.
func NewAnchor(targetIndex int) *Anchor {
	return &Anchor{TargetIndex: targetIndex, Group: render.NewGroup()}
}

// SetHandlers replaces the found/lost callbacks. Nil disables a callback.
func (a *Anchor) SetHandlers(onFound, onLost func()) {
	a.mu.Lock()
	a.onFound = onFound
	a.onLost = onLost
	a.mu.Unlock()
}

// Emit is called by engines when the target state changes.
func (a *Anchor) Emit(kind EventKind) {
	a.Group.SetVisible(kind == TargetFound)
	a.mu.RLock()
	fn := a.onLost
	if kind == TargetFound {
		fn = a.onFound
	}
	a.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
