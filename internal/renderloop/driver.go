// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/renderloop/driver.go
// Summary: Fixed-interval frame loop feeding the effect composer.
// Usage: Started by the session manager once binding completes; stopped first during disposal.
// Notes: Stop waits for the loop goroutine, so no frame runs after Stop returns.

package renderloop

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/framegrace/texelar/internal/effects"
	"github.com/framegrace/texelar/internal/render"
)

// DefaultInterval is roughly one frame at 60Hz.
const DefaultInterval = 16 * time.Millisecond

var debugLog = log.New(io.Discard, "", log.LstdFlags)

// SetVerboseLogging toggles per-frame error logging.
func SetVerboseLogging(enable bool) {
	if enable {
		debugLog.SetOutput(log.Writer())
	} else {
		debugLog.SetOutput(io.Discard)
	}
}

// Driver renders one frame per tick until stopped.
type Driver struct {
	composer  *effects.Composer
	presenter render.Presenter
	interval  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	started bool
	stopped atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}
	start   time.Time

	frames atomic.Uint64
	errors atomic.Uint64
}

// New creates a driver. A nil presenter discards frames; interval <= 0 uses DefaultInterval.
func New(composer *effects.Composer, presenter render.Presenter, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{
		composer:  composer,
		presenter: presenter,
		interval:  interval,
		now:       time.Now,
	}
}

// Start launches the loop. The time uniform counts from epoch, or from now when
// epoch is zero. Calling Start on a running or stopped driver does nothing.
func (d *Driver) Start(epoch time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped.Load() {
		return
	}
	d.started = true
	d.start = epoch
	if epoch.IsZero() {
		d.start = d.now()
	}
	d.stopCh = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(d.stopCh, d.done)
}

func (d *Driver) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if d.stopped.Load() {
				return
			}
			d.tick(d.now().Sub(d.start))
		}
	}
}

// tick renders and presents one frame at the given elapsed time.
func (d *Driver) tick(elapsed time.Duration) {
	d.composer.Uniforms().SetTime(elapsed.Seconds())
	frame, err := d.composer.Render()
	if err != nil {
		if d.errors.Add(1) == 1 {
			log.Printf("RenderLoop: frame failed: %v", err)
		} else {
			debugLog.Printf("RenderLoop: frame failed: %v", err)
		}
		return
	}
	d.frames.Add(1)
	if d.presenter == nil {
		return
	}
	if err := d.presenter.Present(frame); err != nil {
		d.errors.Add(1)
		debugLog.Printf("RenderLoop: present failed: %v", err)
	}
}

// Stop cancels the loop and waits for the in-flight frame. It is idempotent.
func (d *Driver) Stop() {
	if d.stopped.Swap(true) {
		d.wait()
		return
	}
	d.mu.Lock()
	stopCh := d.stopCh
	d.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
	}
	d.wait()
}

func (d *Driver) wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (d *Driver) running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started && !d.stopped.Load()
}

// Frames returns the number of frames rendered.
func (d *Driver) Frames() uint64 { return d.frames.Load() }

// Errors returns the number of failed frames.
func (d *Driver) Errors() uint64 { return d.errors.Load() }
