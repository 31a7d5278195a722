// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/session/manager.go
// Summary: Owns at most one tracking+rendering session and switches between experiences.
// Usage: Driven by the menu, the classifier selector and remote control commands.
// Notes: Selections are serialized; the previous session is fully torn down before the next is created.

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/framegrace/texelar/catalog"
	"github.com/framegrace/texelar/internal/binding"
	"github.com/framegrace/texelar/internal/effects"
	"github.com/framegrace/texelar/internal/media"
	"github.com/framegrace/texelar/internal/render"
	"github.com/framegrace/texelar/internal/renderloop"
	"github.com/framegrace/texelar/internal/tracking"
)

const tracerName = "github.com/framegrace/texelar/internal/session"

// Resolver locates an experience's target source and media.
type Resolver interface {
	binding.Resolver
	TargetSource(exp *catalog.Experience) string
}

// Config wires a Manager to its collaborators.
type Config struct {
	Resolver      Resolver
	Factory       tracking.Factory
	Container     *render.Container
	Models        media.ModelLoader
	Presenter     render.Presenter
	Chain         []effects.PassSpec
	Video         media.VideoOptions
	FrameInterval time.Duration
	StopTimeout   time.Duration
	Tracer        trace.Tracer
}

// Manager runs one session at a time.
type Manager struct {
	cfg    Config
	tracer trace.Tracer

	selectMu sync.Mutex
	inFlight atomic.Int32

	mu        sync.RWMutex
	state     State
	current   *Context
	last      *catalog.Experience
	observers []Observer

	idGen func() string
	now   func() time.Time
}

// NewManager creates an idle manager. A nil container gets a private one.
func NewManager(cfg Config) *Manager {
	if cfg.Container == nil {
		cfg.Container = render.NewContainer()
	}
	if len(cfg.Chain) == 0 {
		cfg.Chain = effects.DefaultChain()
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if cfg.Video == (media.VideoOptions{}) {
		cfg.Video = media.DefaultVideoOptions()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Manager{
		cfg:    cfg,
		tracer: tracer,
		idGen:  uuid.NewString,
		now:    time.Now,
	}
}

// AddObserver registers an observer for subsequent notifications.
func (m *Manager) AddObserver(o Observer) {
	if o == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()
}

func (m *Manager) notify(fn func(Observer)) {
	m.mu.RLock()
	observers := append([]Observer(nil), m.observers...)
	m.mu.RUnlock()
	for _, o := range observers {
		fn(o)
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Busy reports whether a selection or disposal is in flight.
func (m *Manager) Busy() bool { return m.inFlight.Load() > 0 }

// Current returns the experience of the active session, or nil.
func (m *Manager) Current() *catalog.Experience {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.state != Active {
		return nil
	}
	return m.last
}

// Session returns the active session's info.
func (m *Manager) Session() (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Info{}, false
	}
	return m.current.Info, true
}

// Uniforms returns the effect state of the active session, or nil.
func (m *Manager) Uniforms() *effects.Uniforms {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	return m.current.Uniforms
}

func (m *Manager) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	debugLog.Printf("Session: %s -> %s", m.state, to)
	m.state = to
	return nil
}

// Select makes exp the active experience. Selecting the active experience again
// is a no-op. Any previous session is torn down before the new one is created.
func (m *Manager) Select(ctx context.Context, exp *catalog.Experience) error {
	if exp == nil {
		return errors.New("session: nil experience")
	}
	m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	m.selectMu.Lock()
	defer m.selectMu.Unlock()
	return m.selectLocked(ctx, exp)
}

// TrySelect is Select for callers that must not queue: when another selection
// or disposal holds the manager it returns false without doing anything.
func (m *Manager) TrySelect(ctx context.Context, exp *catalog.Experience) (bool, error) {
	if exp == nil {
		return false, errors.New("session: nil experience")
	}
	if !m.selectMu.TryLock() {
		return false, nil
	}
	defer m.selectMu.Unlock()
	m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	return true, m.selectLocked(ctx, exp)
}

func (m *Manager) selectLocked(ctx context.Context, exp *catalog.Experience) error {
	m.mu.RLock()
	same := m.last == exp && m.current != nil && m.state == Active
	m.mu.RUnlock()
	if same {
		debugLog.Printf("Session: %s already active", exp.Folder)
		return nil
	}

	ctx, span := m.tracer.Start(ctx, "session.select", trace.WithAttributes(
		attribute.String("experience.folder", exp.Folder),
		attribute.Int("experience.targets", len(exp.Images)),
	))
	defer span.End()

	if err := m.transition(Disposing); err != nil {
		span.RecordError(err)
		return err
	}
	if err := m.teardownCurrent(ctx); err != nil {
		log.Printf("Session: teardown before %s: %v", exp.Folder, err)
	}
	if err := m.transition(Constructing); err != nil {
		span.RecordError(err)
		return err
	}

	info := Info{ID: m.idGen(), Folder: exp.Folder, Name: exp.Name, StartedAt: m.now()}
	span.SetAttributes(attribute.String("session.id", info.ID))

	sc, stage, err := m.construct(ctx, info, exp)
	if err != nil {
		startErr := &StartError{SessionID: info.ID, Folder: exp.Folder, Stage: stage, Err: err}
		if sc != nil {
			if terr := sc.Teardown(ctx); terr != nil {
				log.Printf("Session: cleanup after failed start: %v", terr)
			}
		}
		m.mu.Lock()
		m.last = nil
		m.mu.Unlock()
		if terr := m.transition(Idle); terr != nil {
			log.Printf("Session: %v", terr)
		}
		span.RecordError(startErr)
		span.SetStatus(codes.Error, stage)
		log.Printf("Session: start failed: %v", startErr)
		m.notify(func(o Observer) { o.SessionFailed(info, startErr) })
		return startErr
	}

	_, sc.span = m.tracer.Start(context.WithoutCancel(ctx), "session.active", trace.WithAttributes(
		attribute.String("session.id", info.ID),
		attribute.String("experience.folder", exp.Folder),
	))
	m.mu.Lock()
	m.current = sc
	m.last = exp
	m.mu.Unlock()
	if err := m.transition(Active); err != nil {
		return err
	}
	log.Printf("Session: %s started (%s)", exp.Folder, info.ID)
	m.notify(func(o Observer) { o.SessionStarted(info) })
	return nil
}

// construct builds and starts a session. On failure it returns the partially
// built context so the caller can release it.
func (m *Manager) construct(ctx context.Context, info Info, exp *catalog.Experience) (*Context, string, error) {
	sc := &Context{
		Info:       info,
		Experience: exp,
		Container:  m.cfg.Container,
		Uniforms:   effects.NewUniforms(),
		started:    info.StartedAt,
	}

	engine, err := m.cfg.Factory.Create(m.cfg.Container, m.cfg.Resolver.TargetSource(exp))
	if err != nil {
		return sc, "create engine", err
	}
	sc.Engine = engine
	sc.Render = engine.Context()

	if err := engine.Start(ctx); err != nil {
		return sc, "start engine", err
	}

	sc.Composer = effects.NewComposer(sc.Uniforms)
	sc.Composer.AddPass(effects.NewRenderPass(sc.Render, engine.Scene(), engine.Camera()))
	passes, err := effects.BuildChain(m.cfg.Chain)
	if err != nil {
		return sc, "build effect chain", err
	}
	for _, p := range passes {
		sc.Composer.AddPass(p)
	}

	sc.Binder = binding.New(binding.Config{
		Resolver: m.cfg.Resolver,
		Engine:   engine,
		Uniforms: sc.Uniforms,
		Models:   m.cfg.Models,
		Video:    m.cfg.Video,
		OnEvent: func(kind tracking.EventKind, idx int) {
			m.notify(func(o Observer) { o.TargetEvent(info, kind, idx) })
		},
	})
	bound, errs := sc.Binder.Bind(ctx, exp)
	debugLog.Printf("Session %s: bound %d targets, skipped %d", info.ID, bound, len(errs))

	sc.Loop = renderloop.New(sc.Composer, m.cfg.Presenter, m.cfg.FrameInterval)
	sc.Loop.Start(info.StartedAt)
	return sc, "", nil
}

// Dispose tears down the active session. Without a session it does nothing.
func (m *Manager) Dispose(ctx context.Context) error {
	m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	m.selectMu.Lock()
	defer m.selectMu.Unlock()

	m.mu.RLock()
	has := m.current != nil
	m.mu.RUnlock()
	if !has {
		return nil
	}
	if err := m.transition(Disposing); err != nil {
		return err
	}
	err := m.teardownCurrent(ctx)
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
	if terr := m.transition(Idle); terr != nil {
		return errors.Join(err, terr)
	}
	return err
}

// teardownCurrent releases the current session, if any. The state must already be Disposing.
func (m *Manager) teardownCurrent(ctx context.Context) error {
	m.mu.Lock()
	sc := m.current
	m.current = nil
	m.mu.Unlock()
	if sc == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StopTimeout)
	defer cancel()
	info := sc.Info
	span := sc.span
	loop := sc.Loop
	err := sc.Teardown(stopCtx)
	var frames, failed uint64
	if loop != nil {
		frames, failed = loop.Frames(), loop.Errors()
	}
	if span != nil {
		if err != nil {
			span.RecordError(err)
		}
		span.SetAttributes(
			attribute.Float64("session.seconds", m.now().Sub(sc.started).Seconds()),
			attribute.Int64("render.frames", int64(frames)),
			attribute.Int64("render.errors", int64(failed)),
		)
		span.End()
	}
	if err != nil {
		log.Printf("Session: %s disposed with errors after %d frames: %v", info.Folder, frames, err)
	} else {
		log.Printf("Session: %s disposed after %d frames (%d failed)", info.Folder, frames, failed)
	}
	m.notify(func(o Observer) { o.SessionEnded(info, err) })
	return err
}
