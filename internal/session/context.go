// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/session/context.go
// Summary: The single owned context of a live session and its teardown protocol.
// Usage: Built by the manager during construction; torn down before the next session.
// Notes: Teardown runs every step even when earlier ones fail and joins their errors.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/framegrace/texelar/catalog"
	"github.com/framegrace/texelar/internal/binding"
	"github.com/framegrace/texelar/internal/effects"
	"github.com/framegrace/texelar/internal/render"
	"github.com/framegrace/texelar/internal/renderloop"
	"github.com/framegrace/texelar/internal/tracking"
)

// Context owns everything one session allocates.
type Context struct {
	Info       Info
	Experience *catalog.Experience

	Engine    tracking.Engine
	Render    render.Context
	Composer  *effects.Composer
	Uniforms  *effects.Uniforms
	Container *render.Container
	Binder    *binding.Binder
	Loop      *renderloop.Driver

	span    trace.Span
	started time.Time
}

// Teardown releases the session in protocol order. Every step runs regardless
// of earlier failures; the returned error joins all step failures.
func (c *Context) Teardown(ctx context.Context) error {
	var errs []error
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			debugLog.Printf("Session %s: teardown %s: %v", c.Info.ID, name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.Loop != nil {
		step("stop render loop", func() error { c.Loop.Stop(); return nil })
	}
	if c.Engine != nil {
		step("stop engine", func() error { return c.Engine.Stop(ctx) })
	}
	if c.Render != nil {
		step("force context loss", c.Render.ForceContextLoss)
		step("dispose render context", c.Render.Dispose)
	}
	if c.Composer != nil {
		step("clear passes", func() error { c.Composer.Clear(); return nil })
	}
	if c.Container != nil {
		step("clear container", func() error {
			c.Container.Clear()
			c.Container.RemoveOverlays()
			return nil
		})
	}
	if c.Binder != nil {
		step("close media", func() error { c.Binder.Close(); return nil })
	}
	if c.Uniforms != nil {
		step("reset uniforms", func() error { c.Uniforms.Reset(); return nil })
	}

	c.Loop = nil
	c.Engine = nil
	c.Render = nil
	c.Composer = nil
	c.Binder = nil
	c.Experience = nil
	return errors.Join(errs...)
}
