// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/tracking/scripted.go
// Summary: Scripted tracking engine replaying found/lost events over camera frames.
// Usage: Default engine of the texelar CLI; the target source is a JSON event script.
// Notes: Frames render through a software canvas so the full pipeline runs without a GPU.

package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/framegrace/texelar/internal/camera"
	"github.com/framegrace/texelar/internal/media"
	"github.com/framegrace/texelar/internal/render"
)

// ScanningOverlay is the overlay node the scripted engine attaches while running.
const ScanningOverlay = "tracking-scanning-overlay"

// Duration decodes "1.5s" style strings as well as plain seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %s", b)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// Script is the content of a scripted target source.
type Script struct {
	Targets int           `json:"targets"`
	Period  Duration      `json:"period"`
	Events  []ScriptEvent `json:"events"`
}

// ScriptEvent changes the state of one target at a point in the script.
type ScriptEvent struct {
	At     Duration `json:"at"`
	Target int      `json:"target"`
	Found  bool     `json:"found"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Extent float64  `json:"extent"`
}

// ParseScript decodes and validates a script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("tracking: decode script: %w", err)
	}
	if s.Targets <= 0 {
		return nil, errors.New("tracking: script declares no targets")
	}
	for i, ev := range s.Events {
		if ev.Target < 0 || ev.Target >= s.Targets {
			return nil, fmt.Errorf("tracking: event %d targets %d of %d", i, ev.Target, s.Targets)
		}
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
	return &s, nil
}

// ScriptedFactory creates scripted engines.
type ScriptedFactory struct {
	Fetcher       media.Fetcher
	Camera        camera.Source
	Width         int
	Height        int
	FrameInterval time.Duration
}

func (f *ScriptedFactory) Create(container *render.Container, targetSource string) (Engine, error) {
	if container == nil {
		return nil, errors.New("tracking: nil container")
	}
	if f.Fetcher == nil || f.Camera == nil {
		return nil, errors.New("tracking: scripted factory needs a fetcher and a camera")
	}
	interval := f.FrameInterval
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return &ScriptedEngine{
		source:    targetSource,
		fetcher:   f.Fetcher,
		cam:       f.Camera,
		interval:  interval,
		container: container,
		canvas:    render.NewCanvas(f.Width, f.Height),
		scene:     render.NewScene(),
		camera:    &render.Camera{},
		anchors:   make(map[int]*Anchor),
	}, nil
}

// ScriptedEngine replays a Script against registered anchors.
type ScriptedEngine struct {
	source    string
	fetcher   media.Fetcher
	cam       camera.Source
	interval  time.Duration
	container *render.Container
	canvas    *render.Canvas
	scene     *render.Scene
	camera    *render.Camera

	mu      sync.Mutex
	script  *Script
	anchors map[int]*Anchor
	cancel  context.CancelFunc
	done    chan struct{}
}

func (e *ScriptedEngine) Context() render.Context { return e.canvas }
func (e *ScriptedEngine) Scene() *render.Scene    { return e.scene }
func (e *ScriptedEngine) Camera() *render.Camera  { return e.camera }

// Start loads the script, grabs a first frame and begins replay.
func (e *ScriptedEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return errors.New("tracking: engine already started")
	}
	e.mu.Unlock()

	data, err := media.ReadAll(ctx, e.fetcher, e.source)
	if err != nil {
		return fmt.Errorf("tracking: target source %s unreachable: %w", e.source, err)
	}
	script, err := ParseScript(data)
	if err != nil {
		return err
	}
	frame, err := e.cam.Capture(ctx)
	if err != nil {
		return fmt.Errorf("tracking: camera: %w", err)
	}
	e.camera.SetFrame(frame)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.mu.Lock()
	e.script = script
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	e.container.AddChild("tracking-canvas")
	e.container.AddOverlay(ScanningOverlay)
	go e.run(runCtx, done, script)
	return nil
}

// AddAnchor registers a target index. Indices beyond the script's targets are rejected.
func (e *ScriptedEngine) AddAnchor(targetIndex int) (*Anchor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.script != nil && (targetIndex < 0 || targetIndex >= e.script.Targets) {
		return nil, fmt.Errorf("tracking: target %d not in source (%d targets)", targetIndex, e.script.Targets)
	}
	if _, exists := e.anchors[targetIndex]; exists {
		return nil, fmt.Errorf("tracking: anchor %d already registered", targetIndex)
	}
	a := NewAnchor(targetIndex)
	e.anchors[targetIndex] = a
	e.scene.AddGroup(a.Group)
	return a, nil
}

// Stop halts replay and frame capture. It is safe to call more than once.
func (e *ScriptedEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *ScriptedEngine) anchor(index int) *Anchor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anchors[index]
}

func (e *ScriptedEngine) run(ctx context.Context, done chan struct{}, script *Script) {
	defer close(done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	start := time.Now()
	cycleStart := start
	next := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if frame, err := e.cam.Capture(ctx); err == nil {
				e.camera.SetFrame(frame)
			} else if ctx.Err() == nil {
				log.Printf("Tracking: camera capture failed: %v", err)
			}

			elapsed := now.Sub(cycleStart)
			for next < len(script.Events) && time.Duration(script.Events[next].At) <= elapsed {
				e.fire(script.Events[next])
				next++
			}
			if next >= len(script.Events) && script.Period > 0 && elapsed >= time.Duration(script.Period) {
				cycleStart = now
				next = 0
			}
		}
	}
}

func (e *ScriptedEngine) fire(ev ScriptEvent) {
	a := e.anchor(ev.Target)
	if a == nil {
		return
	}
	if ev.Found {
		x, y, extent := ev.X, ev.Y, ev.Extent
		if x == 0 && y == 0 {
			x, y = 0.5, 0.5
		}
		if extent <= 0 {
			extent = 0.4
		}
		a.Group.SetPose(x, y, extent)
		a.Emit(TargetFound)
		return
	}
	a.Emit(TargetLost)
}
