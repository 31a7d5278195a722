// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package renderloop

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/texelar/internal/effects"
	"github.com/framegrace/texelar/internal/render"
)

type countingPass struct {
	calls atomic.Int32
	fail  error
}

func (p *countingPass) ID() string { return "counting" }

func (p *countingPass) Process(_ *image.RGBA, _ effects.Values) (*image.RGBA, error) {
	p.calls.Add(1)
	if p.fail != nil {
		return nil, p.fail
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestTickSetsTimeRendersAndPresents(t *testing.T) {
	u := effects.NewUniforms()
	c := effects.NewComposer(u)
	pass := &countingPass{}
	c.AddPass(pass)
	snap := &render.Snapshot{}
	d := New(c, snap, 0)

	d.tick(1500 * time.Millisecond)
	assert.Equal(t, 1.5, u.Snapshot().Time)
	assert.Equal(t, int32(1), pass.calls.Load())
	assert.Equal(t, uint64(1), snap.Frames())
	assert.Equal(t, uint64(1), d.Frames())
}

func TestTickErrorsAreCountedNotFatal(t *testing.T) {
	c := effects.NewComposer(nil)
	c.AddPass(&countingPass{fail: errors.New("lost")})
	d := New(c, nil, time.Millisecond)
	d.tick(0)
	d.tick(0)
	assert.Equal(t, uint64(2), d.Errors())
	assert.Zero(t, d.Frames())
}

func TestNoFrameAfterStop(t *testing.T) {
	c := effects.NewComposer(nil)
	pass := &countingPass{}
	c.AddPass(pass)
	d := New(c, nil, time.Millisecond)
	d.Start(time.Time{})
	require.Eventually(t, func() bool { return pass.calls.Load() > 2 }, 2*time.Second, time.Millisecond)
	assert.True(t, d.running())

	d.Stop()
	after := pass.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, pass.calls.Load())
	assert.False(t, d.running())

	d.Stop()
	d.Start(time.Time{})
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, after, pass.calls.Load(), "stopped driver does not restart")
}

func TestStopBeforeStart(t *testing.T) {
	d := New(effects.NewComposer(nil), nil, time.Millisecond)
	d.Stop()
	d.Start(time.Time{})
	assert.False(t, d.running())
}

func TestTimeCountsFromEpoch(t *testing.T) {
	u := effects.NewUniforms()
	c := effects.NewComposer(u)
	c.AddPass(&countingPass{})
	d := New(c, nil, time.Millisecond)
	d.Start(time.Now().Add(-10 * time.Second))
	defer d.Stop()
	require.Eventually(t, func() bool { return u.Snapshot().Time >= 10 }, 2*time.Second, time.Millisecond)
}
