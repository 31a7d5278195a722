// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/effects/composer.go
// Summary: Ordered pass chain applied to every rendered frame.
// Usage: Built per session: render pass first, then the configured effect passes.
// Notes: Clear empties the chain during teardown; a cleared composer renders nothing.

package effects

import (
	"errors"
	"image"
	"sync"
)

var (
	errNoInput = errors.New("effects: pass needs an input frame")

	// ErrEmptyChain is returned when rendering with no passes.
	ErrEmptyChain = errors.New("effects: no passes in chain")
)

// Composer runs its passes in order, feeding each the previous output.
type Composer struct {
	mu       sync.RWMutex
	passes   []Pass
	uniforms *Uniforms
}

// NewComposer creates an empty chain reading the given uniforms.
func NewComposer(uniforms *Uniforms) *Composer {
	if uniforms == nil {
		uniforms = NewUniforms()
	}
	return &Composer{uniforms: uniforms}
}

// Uniforms returns the uniforms read by the chain.
func (c *Composer) Uniforms() *Uniforms { return c.uniforms }

// AddPass appends a pass.
func (c *Composer) AddPass(p Pass) {
	c.mu.Lock()
	c.passes = append(c.passes, p)
	c.mu.Unlock()
}

// Passes returns a snapshot of the chain.
func (c *Composer) Passes() []Pass {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Pass(nil), c.passes...)
}

// Clear removes every pass.
func (c *Composer) Clear() {
	c.mu.Lock()
	c.passes = nil
	c.mu.Unlock()
}

// Render runs the chain once with a consistent uniform snapshot.
func (c *Composer) Render() (*image.RGBA, error) {
	passes := c.Passes()
	if len(passes) == 0 {
		return nil, ErrEmptyChain
	}
	values := c.uniforms.Snapshot()
	var frame *image.RGBA
	for _, p := range passes {
		out, err := p.Process(frame, values)
		if err != nil {
			return nil, &PassError{Pass: p.ID(), Err: err}
		}
		frame = out
	}
	return frame, nil
}

// PassError identifies the pass that failed.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string { return "effects: pass " + e.Pass + ": " + e.Err.Error() }

func (e *PassError) Unwrap() error { return e.Err }
