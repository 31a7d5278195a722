// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracking

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/texelar/internal/camera"
	"github.com/framegrace/texelar/internal/media"
	"github.com/framegrace/texelar/internal/render"
)

func TestDurationAcceptsStringsAndSeconds(t *testing.T) {
	var d struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"250ms","b":1.5}`), &d))
	assert.Equal(t, Duration(250*time.Millisecond), d.A)
	assert.Equal(t, Duration(1500*time.Millisecond), d.B)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &d))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &d))
}

func TestParseScriptSortsAndValidates(t *testing.T) {
	s, err := ParseScript([]byte(`{"targets":2,"events":[
		{"at":"2s","target":1,"found":true},
		{"at":"1s","target":0,"found":true}]}`))
	require.NoError(t, err)
	require.Len(t, s.Events, 2)
	assert.Equal(t, 0, s.Events[0].Target)

	_, err = ParseScript([]byte(`{"targets":0}`))
	assert.Error(t, err)
	_, err = ParseScript([]byte(`{"targets":1,"events":[{"target":3}]}`))
	assert.Error(t, err)
	_, err = ParseScript([]byte(`nope`))
	assert.Error(t, err)
}

func TestAnchorEmitTogglesVisibilityAndCallsHandlers(t *testing.T) {
	a := NewAnchor(3)
	var found, lost int
	a.SetHandlers(func() { found++ }, func() { lost++ })

	a.Emit(TargetFound)
	assert.True(t, a.Group.Visible())
	a.Emit(TargetLost)
	assert.False(t, a.Group.Visible())
	assert.Equal(t, 1, found)
	assert.Equal(t, 1, lost)

	a.SetHandlers(nil, nil)
	a.Emit(TargetFound)
	assert.Equal(t, 1, found)
	assert.Equal(t, "found", TargetFound.String())
	assert.Equal(t, "lost", TargetLost.String())
}

func newFactory(fsys fstest.MapFS) *ScriptedFactory {
	return &ScriptedFactory{
		Fetcher:       media.FSFetcher{FS: fsys},
		Camera:        camera.NewPattern(32, 24),
		Width:         32,
		Height:        24,
		FrameInterval: 2 * time.Millisecond,
	}
}

func TestScriptedEngineReplaysEvents(t *testing.T) {
	fsys := fstest.MapFS{"exp/targets.json": {Data: []byte(`{"targets":2,"period":"40ms","events":[
		{"at":0,"target":0,"found":true,"x":0.25,"y":0.75,"extent":0.2},
		{"at":"20ms","target":0,"found":false}]}`)}}
	container := render.NewContainer()
	eng, err := newFactory(fsys).Create(container, "exp/targets.json")
	require.NoError(t, err)

	require.NoError(t, eng.Start(context.Background()))
	a, err := eng.AddAnchor(0)
	require.NoError(t, err)
	_, err = eng.AddAnchor(0)
	assert.Error(t, err, "duplicate anchor")
	_, err = eng.AddAnchor(5)
	assert.Error(t, err, "index outside the source")

	var found, lost atomic.Int32
	a.SetHandlers(func() { found.Add(1) }, func() { lost.Add(1) })

	assert.Eventually(t, func() bool { return found.Load() >= 1 && lost.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	cx, cy, extent := a.Group.Pose()
	assert.Equal(t, 0.25, cx)
	assert.Equal(t, 0.75, cy)
	assert.Equal(t, 0.2, extent)

	assert.Contains(t, container.Overlays(), ScanningOverlay)
	assert.NotNil(t, eng.Camera().Frame())
	assert.Len(t, eng.Scene().Groups(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, eng.Stop(ctx))
	require.NoError(t, eng.Stop(ctx))
}

func TestScriptedEngineUnreachableSource(t *testing.T) {
	container := render.NewContainer()
	eng, err := newFactory(fstest.MapFS{}).Create(container, "missing/targets.json")
	require.NoError(t, err)
	err = eng.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.True(t, container.Empty())
	assert.NoError(t, eng.Stop(context.Background()))
}

func TestScriptedFactoryNeedsInputs(t *testing.T) {
	_, err := (&ScriptedFactory{}).Create(render.NewContainer(), "x")
	assert.Error(t, err)
	_, err = newFactory(fstest.MapFS{}).Create(nil, "x")
	assert.Error(t, err)
}
