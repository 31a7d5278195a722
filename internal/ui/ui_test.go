// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/texelar/internal/control"
	"github.com/framegrace/texelar/internal/media"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func rowText(s tcell.Screen, y, x0, x1 int) string {
	var b strings.Builder
	for x := x0; x < x1; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func screenText(s tcell.Screen) string {
	w, h := s.Size()
	var b strings.Builder
	for y := 0; y < h; y++ {
		b.WriteString(rowText(s, y, 0, w))
		b.WriteByte('\n')
	}
	return b.String()
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(id string, err error) control.Handler {
	return func(arg string) (interface{}, error) {
		r.mu.Lock()
		r.calls = append(r.calls, id+":"+arg)
		r.mu.Unlock()
		return nil, err
	}
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func entries() []Entry {
	return []Entry{
		{Folder: "alpha", Name: "Alpha"},
		{Folder: "beta", Name: "Beta"},
	}
}

func TestViewportDrawsHalfBlocks(t *testing.T) {
	s := newScreen(t, 10, 4)
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := red
			if y >= 2 {
				c = blue
			}
			frame.SetRGBA(x, y, c)
		}
	}

	v := NewViewport()
	refresh := make(chan bool, 1)
	v.SetRefreshNotifier(refresh)
	assert.False(t, v.Draw(s, Rect{W: 4, H: 2}))

	require.NoError(t, v.Present(frame))
	assert.Len(t, refresh, 1)
	assert.Equal(t, uint64(1), v.frameCount())

	frame.SetRGBA(0, 0, blue)
	require.True(t, v.Draw(s, Rect{W: 4, H: 2}))

	r, _, style, _ := s.GetContent(0, 0)
	assert.Equal(t, halfBlock, r)
	fg, bg, _ := style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), fg, "presented frame must be a copy")
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), bg)

	_, _, style, _ = s.GetContent(2, 1)
	fg, bg, _ = style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(0, 0, 255), fg)
	assert.Equal(t, tcell.NewRGBColor(0, 0, 255), bg)

	v.Clear()
	assert.False(t, v.hasFrame())
}

func TestFitKeepsAspect(t *testing.T) {
	w, h := fit(1920, 1080, 80, 80)
	assert.Equal(t, 80, w)
	assert.Equal(t, 45, h)
	w, h = fit(100, 400, 80, 80)
	assert.Equal(t, 20, w)
	assert.Equal(t, 80, h)
	w, h = fit(0, 10, 80, 80)
	assert.Zero(t, w+h)
}

func TestMenuTruncatesLongNames(t *testing.T) {
	s := newScreen(t, 60, 12)
	p := New(Config{Entries: []Entry{{Folder: "long", Name: "A very long experience name that will not fit"}}})
	p.Resize(60, 12)
	p.Draw(s)

	row := strings.TrimRight(rowText(s, 1, 1, 19), " ")
	assert.True(t, strings.HasPrefix(row, "A very long"), row)
	assert.True(t, strings.HasSuffix(row, "…"), row)
	assert.Contains(t, screenText(s), "select an experience")
}

func TestKeysTriggerControls(t *testing.T) {
	defer SetScreenFactory(nil)
	s := tcell.NewSimulationScreen("UTF-8")
	SetScreenFactory(func() (tcell.Screen, error) { return s, nil })

	rec := &recorder{}
	bus := control.NewBus()
	p := New(Config{Bus: bus, Entries: entries(), Credits: "Made by the texelar crew"})
	require.NoError(t, bus.Register(control.Select, "", rec.handler(control.Select, nil)))
	require.NoError(t, bus.Register(control.Dispose, "", rec.handler(control.Dispose, nil)))
	require.NoError(t, bus.Register(control.Credits, "", func(string) (interface{}, error) {
		return p.ToggleCredits(), nil
	}))

	errCh := make(chan error, 1)
	go func() { errCh <- Run(context.Background(), p) }()

	require.Eventually(t, func() bool {
		w, _ := s.Size()
		return w > 0 && strings.Contains(screenText(s), "Alpha")
	}, time.Second, 10*time.Millisecond)

	s.PostEvent(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	s.PostEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModNone))
	s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone))

	require.Eventually(t, func() bool {
		return len(rec.list()) == 2 && p.CreditsVisible()
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"select:beta", "dispose:"}, rec.list())
	assert.Equal(t, 1, p.Cursor())
	require.Eventually(t, func() bool {
		return strings.Contains(screenText(s), "Made by the texelar crew")
	}, time.Second, 10*time.Millisecond)

	s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not exit on q")
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	defer SetScreenFactory(nil)
	s := tcell.NewSimulationScreen("UTF-8")
	SetScreenFactory(func() (tcell.Screen, error) { return s, nil })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, New(Config{})) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not exit on cancel")
	}
}

func TestMouseSelectsEntryAndTogglesCredits(t *testing.T) {
	rec := &recorder{}
	bus := control.NewBus()
	require.NoError(t, bus.Register(control.Select, "", rec.handler(control.Select, nil)))
	require.NoError(t, bus.Register(control.Credits, "", rec.handler(control.Credits, nil)))

	p := New(Config{Bus: bus, Entries: entries()})
	p.Resize(90, 24)

	click := func(x, y int) {
		p.HandleMouse(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
		p.HandleMouse(tcell.NewEventMouse(x, y, tcell.ButtonNone, tcell.ModNone))
	}
	click(5, itemHeight+1)
	click(90-len(creditsLabel)-1, 23)
	click(60, 5)

	assert.Equal(t, []string{"select:beta", "credits:"}, rec.list())
	assert.Equal(t, 1, p.Cursor())

	p.HandleMouse(tcell.NewEventMouse(5, 1, tcell.Button1, tcell.ModNone))
	p.HandleMouse(tcell.NewEventMouse(6, 1, tcell.Button1, tcell.ModNone))
	assert.Len(t, rec.list(), 3, "a held button selects once")
}

func TestControlErrorsShowInStatusLine(t *testing.T) {
	s := newScreen(t, 80, 20)
	bus := control.NewBus()
	require.NoError(t, bus.Register(control.Select, "", func(string) (interface{}, error) {
		return nil, errors.New("camera denied")
	}))
	p := New(Config{
		Bus:     bus,
		Entries: entries(),
		Status:  func() Status { return Status{State: "active", Folder: "alpha", Name: "Alpha"} },
	})
	p.Resize(80, 20)
	p.HandleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	p.Draw(s)

	status := rowText(s, 19, 0, 80)
	assert.Contains(t, status, "active · Alpha")
	assert.Contains(t, status, "camera denied")
	assert.Contains(t, status, creditsLabel)
	assert.Contains(t, rowText(s, 1, 0, 26), "▶ Alpha")
}

func TestRecentPanelListsSessions(t *testing.T) {
	s := newScreen(t, 100, 20)
	p := New(Config{
		Entries: entries(),
		Recent:  func() []string { return []string{"10-19 14:03  Alpha · ended · 2 found"} },
	})
	p.Resize(100, 20)

	p.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone))
	p.Draw(s)
	text := screenText(s)
	assert.Contains(t, text, "recent sessions")
	assert.Contains(t, text, "Alpha · ended · 2 found")

	p.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone))
	p.Draw(s)
	assert.NotContains(t, screenText(s), "recent sessions")

	empty := New(Config{Entries: entries()})
	empty.Resize(100, 20)
	empty.ToggleRecent()
	empty.Draw(s)
	assert.Contains(t, screenText(s), "no sessions played yet")
}

func TestCursorWraps(t *testing.T) {
	p := New(Config{Entries: entries()})
	p.Resize(80, 20)
	p.HandleKey(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	assert.Equal(t, 1, p.Cursor())
	p.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModNone))
	assert.Equal(t, 0, p.Cursor())
	assert.True(t, p.HandleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
}

func TestLoadThumbnailScalesDown(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	fetcher := media.FSFetcher{FS: fstest.MapFS{
		"poster/thumb.png": {Data: buf.Bytes()},
		"bad/thumb.png":    {Data: []byte("not an image")},
	}}

	thumb, err := LoadThumbnail(context.Background(), fetcher, "poster/thumb.png")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 4), thumb.Bounds().Size())

	_, err = LoadThumbnail(context.Background(), fetcher, "bad/thumb.png")
	assert.Error(t, err)
	_, err = LoadThumbnail(context.Background(), fetcher, "missing.png")
	assert.Error(t, err)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"a", "b"}, wrap("a\nb", 10))
}
