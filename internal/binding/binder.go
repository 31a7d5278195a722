// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/binding/binder.go
// Summary: Binds an experience's targets to anchors, media elements and effect uniforms.
// Usage: Created per session after the engine starts; closed during session disposal.
// Notes: Per-target problems are isolated: a bad binding is skipped, its siblings still attach.

package binding

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/framegrace/texelar/catalog"
	"github.com/framegrace/texelar/internal/effects"
	"github.com/framegrace/texelar/internal/media"
	"github.com/framegrace/texelar/internal/render"
	"github.com/framegrace/texelar/internal/tracking"
)

const maxConcurrentModelLoads = 4

// Resolver turns experience-relative media names into locations.
type Resolver interface {
	MediaPath(exp *catalog.Experience, rel string) string
}

// EventFunc observes target events after they were applied.
type EventFunc func(kind tracking.EventKind, targetIndex int)

// Config wires a Binder to the live session.
type Config struct {
	Resolver Resolver
	Engine   tracking.Engine
	Uniforms *effects.Uniforms
	Models   media.ModelLoader
	Video    media.VideoOptions
	OnEvent  EventFunc
}

// Target is the live state of one bound target.
type Target struct {
	Binding catalog.TargetBinding
	Anchor  *tracking.Anchor
	Plane   *render.Plane
	Video   *media.Video

	mu        sync.Mutex
	found     bool
	model     *media.Model
	modelNode *render.ModelNode
	modelErr  error
}

// ModelNode returns the attached model node, or nil.
func (t *Target) ModelNode() *render.ModelNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.modelNode
}

// ModelErr returns the model load failure, if any.
func (t *Target) ModelErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.modelErr
}

// Binder owns the targets of one experience within one session.
type Binder struct {
	cfg Config

	mu      sync.RWMutex
	targets map[int]*Target
	order   []int
	closed  bool

	loads      *errgroup.Group
	loadCancel context.CancelFunc
}

// New creates a binder. Uniforms default to a private set when nil.
func New(cfg Config) *Binder {
	if cfg.Uniforms == nil {
		cfg.Uniforms = effects.NewUniforms()
	}
	return &Binder{cfg: cfg, targets: make(map[int]*Target)}
}

// Bind registers one anchor per valid binding. It returns the number of
// attached targets and the per-binding errors of skipped ones.
func (b *Binder) Bind(ctx context.Context, exp *catalog.Experience) (int, []error) {
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, loadCtx := errgroup.WithContext(loadCtx)
	g.SetLimit(maxConcurrentModelLoads)

	b.mu.Lock()
	b.loads = g
	b.loadCancel = cancel
	b.mu.Unlock()

	var errs []error
	bound := 0
	for pos, tb := range exp.Images {
		t, err := b.bindOne(exp, pos, tb)
		if err != nil {
			log.Printf("Binding: skipping target: %v", err)
			errs = append(errs, err)
			continue
		}
		bound++
		if tb.GLBModel != "" && b.cfg.Models != nil {
			src := b.cfg.Resolver.MediaPath(exp, tb.GLBModel)
			g.Go(func() error {
				b.loadModel(loadCtx, t, src)
				return nil
			})
		}
	}
	return bound, errs
}

func (b *Binder) bindOne(exp *catalog.Experience, pos int, tb catalog.TargetBinding) (*Target, error) {
	if tb.Invalid != nil {
		return nil, &MediaBindingError{TargetIndex: tb.TargetIndex, Position: pos, Err: tb.Invalid}
	}
	if missing := tb.Properties.MissingDisplay(); len(missing) > 0 {
		return nil, &MediaBindingError{TargetIndex: tb.TargetIndex, Position: pos, Err: fmt.Errorf("missing properties %v", missing)}
	}
	width, height := *tb.Properties.Width, *tb.Properties.Height
	if width <= 0 || height <= 0 {
		return nil, &MediaBindingError{TargetIndex: tb.TargetIndex, Position: pos, Err: fmt.Errorf("invalid size %vx%v", width, height)}
	}

	b.mu.RLock()
	_, dup := b.targets[tb.TargetIndex]
	b.mu.RUnlock()
	if dup {
		return nil, &MediaBindingError{TargetIndex: tb.TargetIndex, Position: pos, Err: fmt.Errorf("duplicate target index")}
	}

	anchor, err := b.cfg.Engine.AddAnchor(tb.TargetIndex)
	if err != nil {
		return nil, &MediaBindingError{TargetIndex: tb.TargetIndex, Position: pos, Err: err}
	}

	t := &Target{Binding: tb, Anchor: anchor}
	if tb.Video != "" {
		aspect := width / height
		t.Plane = &render.Plane{Width: 1, Height: 1 / aspect, Opacity: *tb.Properties.Opacity}
		b.attachVideo(t, media.NewVideo(b.cfg.Resolver.MediaPath(exp, tb.Video), b.cfg.Video))
		anchor.Group.Add(t.Plane)
	}

	index := tb.TargetIndex
	anchor.SetHandlers(
		func() { b.OnTargetEvent(tracking.TargetFound, index) },
		func() { b.OnTargetEvent(tracking.TargetLost, index) },
	)

	b.mu.Lock()
	b.targets[index] = t
	b.order = append(b.order, index)
	b.mu.Unlock()
	return t, nil
}

// attachVideo installs a video element, closing any element it supersedes.
func (b *Binder) attachVideo(t *Target, v *media.Video) {
	if t.Video != nil && t.Video != v {
		t.Video.Close()
	}
	t.Video = v
	if t.Plane != nil {
		t.Plane.Video = v
	}
}

func (b *Binder) loadModel(ctx context.Context, t *Target, src string) {
	m, err := b.cfg.Models.Load(ctx, src)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		loadErr := &ModelLoadError{TargetIndex: t.Binding.TargetIndex, Src: src, Err: err}
		t.modelErr = loadErr
		log.Printf("Binding: %v", loadErr)
		return
	}
	t.model = m
	if t.found {
		b.attachModelLocked(t)
	}
}

// attachModelLocked instantiates the model node once, applying the transform.
func (b *Binder) attachModelLocked(t *Target) {
	if t.model == nil || t.modelNode != nil {
		return
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}
	node := &render.ModelNode{Model: t.model, Scale: render.Vec3{X: 1, Y: 1, Z: 1}}
	if tr := t.Binding.Transform; tr != nil {
		rad := tr.Radians()
		scale := tr.ScaleOrUnit()
		node.Position = render.Vec3{X: tr.Position.X, Y: tr.Position.Y, Z: tr.Position.Z}
		node.Rotation = render.Vec3{X: rad.X, Y: rad.Y, Z: rad.Z}
		node.Scale = render.Vec3{X: scale.X, Y: scale.Y, Z: scale.Z}
	}
	t.modelNode = node
	t.Anchor.Group.Add(node)
}

// OnTargetEvent applies a found/lost event for a target index. Unknown
// indices and events after Close are ignored.
func (b *Binder) OnTargetEvent(kind tracking.EventKind, targetIndex int) {
	b.mu.RLock()
	t := b.targets[targetIndex]
	closed := b.closed
	b.mu.RUnlock()
	if t == nil || closed {
		return
	}

	switch kind {
	case tracking.TargetFound:
		if t.Video != nil {
			if err := t.Video.Play(); err != nil {
				log.Printf("Binding: target %d: play video: %v", targetIndex, err)
			}
		}
		t.mu.Lock()
		t.found = true
		b.attachModelLocked(t)
		t.mu.Unlock()
		props := t.Binding.Properties
		b.cfg.Uniforms.Apply(effects.Params{
			Amount:        props.RGBShift(),
			GlitchAmount:  props.Glitch(),
			GlowIntensity: props.Glow(),
		})
	case tracking.TargetLost:
		if t.Video != nil {
			t.Video.Pause()
		}
		t.mu.Lock()
		t.found = false
		t.mu.Unlock()
		b.cfg.Uniforms.Reset()
	default:
		return
	}

	if b.cfg.OnEvent != nil {
		b.cfg.OnEvent(kind, targetIndex)
	}
}

func (b *Binder) targetList() []*Target {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Target, 0, len(b.order))
	for _, idx := range b.order {
		out = append(out, b.targets[idx])
	}
	return out
}

// Target returns the bound target for an index.
func (b *Binder) Target(index int) (*Target, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.targets[index]
	return t, ok
}

// WaitModels blocks until pending model loads finish.
func (b *Binder) WaitModels() {
	b.mu.RLock()
	g := b.loads
	b.mu.RUnlock()
	if g != nil {
		_ = g.Wait()
	}
}

// Close cancels pending model loads, stops every video and detaches all
// visuals. It is safe to call more than once.
func (b *Binder) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	cancel := b.loadCancel
	targets := make([]*Target, 0, len(b.targets))
	for _, t := range b.targets {
		targets = append(targets, t)
	}
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.WaitModels()

	for _, t := range targets {
		t.Anchor.SetHandlers(nil, nil)
		if t.Video != nil {
			t.Video.Close()
		}
		t.Anchor.Group.Clear()
		t.mu.Lock()
		t.modelNode = nil
		t.found = false
		t.mu.Unlock()
	}
}
