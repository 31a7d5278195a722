// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/texelar/catalog"
	"github.com/framegrace/texelar/internal/render"
	"github.com/framegrace/texelar/internal/tracking"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) index(event string) int {
	return slices.Index(l.snapshot(), event)
}

type fakeRenderContext struct {
	n   int
	log *eventLog
}

func (c *fakeRenderContext) Render(*render.Scene, *render.Camera) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}
func (c *fakeRenderContext) Size() (int, int) { return 4, 4 }
func (c *fakeRenderContext) ForceContextLoss() error {
	c.log.add("release %d", c.n)
	return nil
}
func (c *fakeRenderContext) Dispose() error {
	c.log.add("dispose-context %d", c.n)
	return nil
}
func (c *fakeRenderContext) Lost() bool { return false }

type fakeEngine struct {
	n         int
	log       *eventLog
	container *render.Container
	startErr  error
	stopErr   error
	block     chan struct{}
	ctx       *fakeRenderContext
	scene     *render.Scene

	mu      sync.Mutex
	anchors []*tracking.Anchor
}

func (e *fakeEngine) Start(ctx context.Context) error {
	if e.block != nil {
		<-e.block
	}
	e.log.add("start %d", e.n)
	if e.startErr != nil {
		return e.startErr
	}
	e.container.AddChild(fmt.Sprintf("canvas-%d", e.n))
	e.container.AddOverlay(fmt.Sprintf("overlay-%d", e.n))
	return nil
}

func (e *fakeEngine) Stop(context.Context) error {
	e.log.add("stop %d", e.n)
	return e.stopErr
}

func (e *fakeEngine) AddAnchor(idx int) (*tracking.Anchor, error) {
	a := tracking.NewAnchor(idx)
	e.mu.Lock()
	e.anchors = append(e.anchors, a)
	e.mu.Unlock()
	return a, nil
}

func (e *fakeEngine) Context() render.Context { return e.ctx }
func (e *fakeEngine) Scene() *render.Scene    { return e.scene }
func (e *fakeEngine) Camera() *render.Camera  { return &render.Camera{} }

type fakeFactory struct {
	log       *eventLog
	mu        sync.Mutex
	created   []*fakeEngine
	configure func(*fakeEngine)
	sources   []string
}

func (f *fakeFactory) Create(container *render.Container, source string) (tracking.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.created) + 1
	f.log.add("create %d", n)
	e := &fakeEngine{
		n:         n,
		log:       f.log,
		container: container,
		ctx:       &fakeRenderContext{n: n, log: f.log},
		scene:     render.NewScene(),
	}
	if f.configure != nil {
		f.configure(e)
	}
	f.created = append(f.created, e)
	f.sources = append(f.sources, source)
	return e, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

const testCatalog = `{
  "basePath": "/m/",
  "targetsFile": "targets.json",
  "experiences": [
    {"folder": "alpha", "images": [{"targetIndex": 0, "video": "a.mp4",
      "properties": {"width": 2, "height": 1, "opacity": 1, "glowIntensity": 0.4}}]},
    {"folder": "beta", "images": [{"targetIndex": 0,
      "properties": {"width": 1, "height": 1, "opacity": 1}}]}
  ]
}`

func setup(t *testing.T) (*Manager, *fakeFactory, *catalog.Catalog, *eventLog) {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog), catalog.FormatJSON)
	require.NoError(t, err)
	log := &eventLog{}
	factory := &fakeFactory{log: log}
	m := NewManager(Config{
		Resolver:      cat,
		Factory:       factory,
		FrameInterval: time.Millisecond,
	})
	t.Cleanup(func() { _ = m.Dispose(context.Background()) })
	return m, factory, cat, log
}

func TestSwitchReleasesPreviousBeforeCreatingNext(t *testing.T) {
	m, factory, cat, log := setup(t)
	ctx := context.Background()
	alpha, _ := cat.Lookup("alpha")
	beta, _ := cat.Lookup("beta")

	require.NoError(t, m.Select(ctx, alpha))
	assert.Equal(t, Active, m.State())
	assert.Same(t, alpha, m.Current())
	require.NoError(t, m.Select(ctx, beta))
	assert.Same(t, beta, m.Current())
	assert.Equal(t, 2, factory.count())
	assert.Equal(t, []string{"/m/alpha/targets.json", "/m/beta/targets.json"}, factory.sources)

	for _, before := range []string{"stop 1", "release 1", "dispose-context 1"} {
		idx := log.index(before)
		require.GreaterOrEqual(t, idx, 0, before)
		assert.Less(t, idx, log.index("create 2"), "%s must precede create 2", before)
	}
	assert.Less(t, log.index("stop 1"), log.index("release 1"))
	assert.Equal(t, []string{"canvas-2"}, m.cfg.Container.Children())
	assert.Equal(t, []string{"overlay-2"}, m.cfg.Container.Overlays())
}

func TestSelectingActiveExperienceIsNoop(t *testing.T) {
	m, factory, cat, _ := setup(t)
	alpha, _ := cat.Lookup("alpha")
	require.NoError(t, m.Select(context.Background(), alpha))
	require.NoError(t, m.Select(context.Background(), alpha))
	assert.Equal(t, 1, factory.count())
}

func TestStartFailureLeavesNoSession(t *testing.T) {
	m, factory, cat, log := setup(t)
	factory.configure = func(e *fakeEngine) {
		if e.n == 1 {
			e.startErr = errors.New("camera permission denied")
		}
	}
	var failed []error
	m.AddObserver(ObserverFuncs{Failed: func(_ Info, err error) { failed = append(failed, err) }})

	alpha, _ := cat.Lookup("alpha")
	err := m.Select(context.Background(), alpha)
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, "start engine", startErr.Stage)
	assert.Equal(t, "alpha", startErr.Folder)
	assert.Equal(t, Idle, m.State())
	assert.Nil(t, m.Current())
	assert.GreaterOrEqual(t, log.index("release 1"), 0, "partial context released")
	assert.True(t, m.cfg.Container.Empty())
	require.Len(t, failed, 1)

	require.NoError(t, m.Select(context.Background(), alpha), "retry after failure")
	assert.Equal(t, 2, factory.count())
	assert.Equal(t, Active, m.State())
}

func TestDisposeWithoutSessionIsNoop(t *testing.T) {
	m, _, _, log := setup(t)
	require.NoError(t, m.Dispose(context.Background()))
	require.NoError(t, m.Dispose(context.Background()))
	assert.Equal(t, Idle, m.State())
	assert.Empty(t, log.snapshot())
}

func TestDisposeRunsEveryStepDespiteFailures(t *testing.T) {
	m, factory, cat, log := setup(t)
	factory.configure = func(e *fakeEngine) { e.stopErr = errors.New("engine wedged") }
	var ended []error
	m.AddObserver(ObserverFuncs{Ended: func(_ Info, err error) { ended = append(ended, err) }})

	alpha, _ := cat.Lookup("alpha")
	require.NoError(t, m.Select(context.Background(), alpha))
	uniforms := m.Uniforms()
	require.NotNil(t, uniforms)

	err := m.Dispose(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine wedged")
	assert.GreaterOrEqual(t, log.index("release 1"), 0)
	assert.GreaterOrEqual(t, log.index("dispose-context 1"), 0)
	assert.True(t, m.cfg.Container.Empty())
	assert.True(t, uniforms.Snapshot().Neutral())
	assert.Equal(t, Idle, m.State())
	assert.Nil(t, m.Uniforms())
	require.Len(t, ended, 1)
	assert.Error(t, ended[0])
}

func TestTargetEventsReachObserversAndUniforms(t *testing.T) {
	m, factory, cat, _ := setup(t)
	var mu sync.Mutex
	var seen []string
	m.AddObserver(ObserverFuncs{Target: func(info Info, kind tracking.EventKind, idx int) {
		mu.Lock()
		seen = append(seen, fmt.Sprintf("%s %s %d", info.Folder, kind, idx))
		mu.Unlock()
	}})
	alpha, _ := cat.Lookup("alpha")
	require.NoError(t, m.Select(context.Background(), alpha))

	eng := factory.created[0]
	require.Len(t, eng.anchors, 1)
	eng.anchors[0].Emit(tracking.TargetFound)
	assert.Equal(t, 0.4, m.Uniforms().Snapshot().GlowIntensity)
	eng.anchors[0].Emit(tracking.TargetLost)
	assert.True(t, m.Uniforms().Snapshot().Neutral())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"alpha found 0", "alpha lost 0"}, seen)
}

func TestBusyDuringSelectionAndSerialized(t *testing.T) {
	m, factory, cat, log := setup(t)
	release := make(chan struct{})
	factory.configure = func(e *fakeEngine) {
		if e.n == 1 {
			e.block = release
		}
	}
	alpha, _ := cat.Lookup("alpha")
	beta, _ := cat.Lookup("beta")

	errs := make(chan error, 2)
	go func() { errs <- m.Select(context.Background(), alpha) }()
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, time.Millisecond)
	assert.True(t, m.Busy())

	go func() { errs <- m.Select(context.Background(), beta) }()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, factory.count(), "second selection waits for the first")

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.False(t, m.Busy())
	assert.Equal(t, 2, factory.count())
	assert.Less(t, log.index("release 1"), log.index("create 2"))
}

func TestTrySelectDoesNotQueueBehindSelection(t *testing.T) {
	m, factory, cat, _ := setup(t)
	release := make(chan struct{})
	factory.configure = func(e *fakeEngine) {
		if e.n == 1 {
			e.block = release
		}
	}
	alpha, _ := cat.Lookup("alpha")
	beta, _ := cat.Lookup("beta")

	errs := make(chan error, 1)
	go func() { errs <- m.Select(context.Background(), alpha) }()
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, time.Millisecond)

	started, err := m.TrySelect(context.Background(), beta)
	assert.False(t, started)
	assert.NoError(t, err)
	assert.Equal(t, 1, factory.count(), "no engine created for the skipped selection")

	close(release)
	require.NoError(t, <-errs)

	started, err = m.TrySelect(context.Background(), beta)
	assert.True(t, started)
	require.NoError(t, err)
	assert.Equal(t, "beta", m.Current().Folder)
	assert.False(t, m.Busy())
}

func TestRenderLoopRunsWhileActive(t *testing.T) {
	snap := &render.Snapshot{}
	cat, err := catalog.Parse([]byte(testCatalog), catalog.FormatJSON)
	require.NoError(t, err)
	m := NewManager(Config{
		Resolver:      cat,
		Factory:       &fakeFactory{log: &eventLog{}},
		Presenter:     snap,
		FrameInterval: time.Millisecond,
	})
	alpha, _ := cat.Lookup("alpha")
	require.NoError(t, m.Select(context.Background(), alpha))
	require.Eventually(t, func() bool { return snap.Frames() > 2 }, 2*time.Second, time.Millisecond)

	require.NoError(t, m.Dispose(context.Background()))
	frames := snap.Frames()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frames, snap.Frames())
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(Idle, Disposing))
	assert.True(t, CanTransition(Disposing, Constructing))
	assert.True(t, CanTransition(Constructing, Active))
	assert.True(t, CanTransition(Constructing, Idle))
	assert.True(t, CanTransition(Active, Disposing))
	assert.False(t, CanTransition(Active, Constructing))
	assert.False(t, CanTransition(Idle, Active))
	assert.Equal(t, "active", Active.String())
}
