// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ui/player.go
// Summary: Terminal player screen: experience menu, AR viewport, credits and status line.
// Usage: Run(ctx, player) drives it; actions go through the control bus.
// Notes: Drawing and input happen on the runner goroutine; bus handlers may call in concurrently.

package ui

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/texelar/internal/control"
)

const (
	itemHeight   = thumbRows + 1
	sidebarMax   = 30
	creditsLabel = "[c] credits"
)

// Entry is one experience in the menu.
type Entry struct {
	Folder string
	Name   string
	Thumb  image.Image
}

// Status is what the status line shows about the player.
type Status struct {
	State  string
	Folder string
	Name   string
}

// Config wires the player to the rest of the program.
type Config struct {
	Bus      *control.Bus
	Entries  []Entry
	Credits  string
	Viewport *Viewport
	Status   func() Status
	// Recent lists recently played sessions, newest first.
	Recent func() []string
}

var (
	styleSidebar  = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorSilver)
	styleSelected = tcell.StyleDefault.Background(tcell.ColorTeal).Foreground(tcell.ColorWhite).Bold(true)
	styleActive   = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorAqua)
	styleStatus   = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleCredits  = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	styleHint     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Player is the full-screen player UI.
type Player struct {
	cfg Config

	mu          sync.Mutex
	width       int
	height      int
	cursor      int
	offset      int
	credits     bool
	recent      bool
	message     string
	lastButtons tcell.ButtonMask
	refresh     chan<- bool
}

// New creates a player. A nil viewport is replaced by an empty one.
func New(cfg Config) *Player {
	if cfg.Viewport == nil {
		cfg.Viewport = NewViewport()
	}
	if cfg.Status == nil {
		cfg.Status = func() Status { return Status{State: "idle"} }
	}
	return &Player{cfg: cfg}
}

// Viewport returns the presenter the session manager should render into.
func (p *Player) Viewport() *Viewport { return p.cfg.Viewport }

// SetRefreshNotifier installs the redraw channel for the player and its viewport.
func (p *Player) SetRefreshNotifier(ch chan<- bool) {
	p.mu.Lock()
	p.refresh = ch
	p.mu.Unlock()
	p.cfg.Viewport.SetRefreshNotifier(ch)
}

func (p *Player) requestRefresh() {
	p.mu.Lock()
	ch := p.refresh
	p.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- true:
	default:
	}
}

// Resize records the screen size.
func (p *Player) Resize(w, h int) {
	p.mu.Lock()
	p.width, p.height = w, h
	p.scrollLocked()
	p.mu.Unlock()
}

// Cursor returns the highlighted menu index.
func (p *Player) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// ToggleCredits flips the credits panel and reports whether it is now shown.
func (p *Player) ToggleCredits() bool {
	p.mu.Lock()
	p.credits = !p.credits
	shown := p.credits
	p.mu.Unlock()
	p.requestRefresh()
	return shown
}

// CreditsVisible reports whether the credits panel is shown.
func (p *Player) CreditsVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.credits
}

// ToggleRecent flips the recent-sessions panel and reports whether it is now shown.
func (p *Player) ToggleRecent() bool {
	p.mu.Lock()
	p.recent = !p.recent
	shown := p.recent
	p.mu.Unlock()
	p.requestRefresh()
	return shown
}

func (p *Player) recentVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recent
}

// SetMessage shows a transient line in the status bar until the next action.
func (p *Player) SetMessage(msg string) {
	p.mu.Lock()
	p.message = msg
	p.mu.Unlock()
	p.requestRefresh()
}

// Refresh asks the runner to redraw.
func (p *Player) Refresh() { p.requestRefresh() }

// HandleKey processes a key and reports whether the player should quit.
func (p *Player) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		p.move(-1)
	case tcell.KeyDown:
		p.move(1)
	case tcell.KeyEnter:
		p.selectCursor()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'k':
			p.move(-1)
		case 'j':
			p.move(1)
		case ' ':
			p.selectCursor()
		case 'c':
			p.trigger(control.Credits, "")
		case 'x':
			p.trigger(control.Dispose, "")
		case 'h':
			p.ToggleRecent()
		}
	}
	return false
}

// HandleMouse selects menu entries and toggles credits on button presses.
func (p *Player) HandleMouse(ev *tcell.EventMouse) {
	buttons := ev.Buttons()
	p.mu.Lock()
	pressed := buttons&tcell.Button1 != 0 && p.lastButtons&tcell.Button1 == 0
	p.lastButtons = buttons
	p.mu.Unlock()

	switch {
	case buttons&tcell.WheelUp != 0:
		p.move(-1)
		return
	case buttons&tcell.WheelDown != 0:
		p.move(1)
		return
	case !pressed:
		return
	}

	x, y := ev.Position()
	l := p.layout()
	switch {
	case l.credits.Contains(x, y):
		p.trigger(control.Credits, "")
	case l.sidebar.Contains(x, y):
		p.mu.Lock()
		idx := p.offset + (y-l.sidebar.Y)/itemHeight
		valid := idx >= 0 && idx < len(p.cfg.Entries)
		if valid {
			p.cursor = idx
		}
		p.mu.Unlock()
		if valid {
			p.selectCursor()
		}
	}
}

func (p *Player) move(delta int) {
	p.mu.Lock()
	n := len(p.cfg.Entries)
	if n > 0 {
		p.cursor = (p.cursor + delta + n) % n
		p.scrollLocked()
	}
	p.mu.Unlock()
}

func (p *Player) scrollLocked() {
	visible := max(1, (p.height-1)/itemHeight)
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+visible {
		p.offset = p.cursor - visible + 1
	}
}

func (p *Player) selectCursor() {
	p.mu.Lock()
	if len(p.cfg.Entries) == 0 {
		p.mu.Unlock()
		return
	}
	folder := p.cfg.Entries[p.cursor].Folder
	p.mu.Unlock()
	p.trigger(control.Select, folder)
}

func (p *Player) trigger(id, arg string) {
	if p.cfg.Bus == nil {
		return
	}
	p.SetMessage("")
	if _, err := p.cfg.Bus.Trigger(id, arg); err != nil {
		p.SetMessage(err.Error())
	}
}

type layout struct {
	sidebar  Rect
	viewport Rect
	status   Rect
	credits  Rect
}

func (p *Player) layout() layout {
	p.mu.Lock()
	w, h := p.width, p.height
	p.mu.Unlock()
	side := min(sidebarMax, w/3)
	body := max(0, h-1)
	l := layout{
		sidebar:  Rect{X: 0, Y: 0, W: side, H: body},
		viewport: Rect{X: side, Y: 0, W: max(0, w-side), H: body},
		status:   Rect{X: 0, Y: body, W: w, H: 1},
	}
	cw := runewidth.StringWidth(creditsLabel)
	l.credits = Rect{X: max(0, w-cw-1), Y: body, W: cw, H: 1}
	return l
}

// Draw paints the whole screen.
func (p *Player) Draw(s tcell.Screen) {
	s.Clear()
	l := p.layout()
	p.drawSidebar(s, l.sidebar)
	p.drawViewport(s, l.viewport)
	p.drawStatus(s, l)
	if p.recentVisible() {
		p.drawRecent(s, l.viewport)
	}
	if p.CreditsVisible() {
		p.drawCredits(s, l.viewport)
	}
}

func (p *Player) drawSidebar(s tcell.Screen, area Rect) {
	fill(s, area, styleSidebar)
	if area.W < 4 {
		return
	}
	status := p.cfg.Status()

	p.mu.Lock()
	entries := p.cfg.Entries
	cursor, offset := p.cursor, p.offset
	p.mu.Unlock()

	if len(entries) == 0 {
		drawText(s, area.X+1, area.Y, area.W-2, "no experiences", styleSidebar)
		return
	}
	for i := offset; i < len(entries); i++ {
		top := area.Y + (i-offset)*itemHeight
		if top+itemHeight > area.Y+area.H {
			break
		}
		e := entries[i]
		thumbW := 0
		if e.Thumb != nil && area.W > thumbCols+4 {
			drawImage(s, Rect{X: area.X + 1, Y: top, W: thumbCols, H: thumbRows}, e.Thumb)
			thumbW = thumbCols + 1
		}
		style := styleSidebar
		switch {
		case i == cursor:
			style = styleSelected
		case status.Folder == e.Folder && status.State == "active":
			style = styleActive
		}
		row := Rect{X: area.X + 1 + thumbW, Y: top + 1, W: area.W - 2 - thumbW, H: 1}
		fill(s, row, style)
		name := e.Name
		if status.Folder == e.Folder && status.State == "active" {
			name = "▶ " + name
		}
		drawText(s, row.X, row.Y, row.W, name, style)
	}
}

func (p *Player) drawViewport(s tcell.Screen, area Rect) {
	if area.W <= 0 || area.H <= 0 {
		return
	}
	if p.cfg.Viewport.Draw(s, area) {
		return
	}
	msg := "select an experience"
	if st := p.cfg.Status(); st.State != "idle" {
		msg = st.State + "…"
	}
	w := runewidth.StringWidth(msg)
	drawText(s, area.X+max(0, (area.W-w)/2), area.Y+area.H/2, area.W, msg, styleHint)
}

func (p *Player) drawStatus(s tcell.Screen, l layout) {
	fill(s, l.status, styleStatus)
	st := p.cfg.Status()
	p.mu.Lock()
	msg := p.message
	p.mu.Unlock()

	text := st.State
	if st.Name != "" {
		text = fmt.Sprintf("%s · %s", st.State, st.Name)
	}
	if msg != "" {
		text += " · " + msg
	}
	drawText(s, l.status.X+1, l.status.Y, max(0, l.credits.X-2), text, styleStatus)
	drawText(s, l.credits.X, l.credits.Y, l.credits.W, creditsLabel, styleStatus.Bold(true))
}

func (p *Player) drawCredits(s tcell.Screen, area Rect) {
	text := strings.TrimSpace(p.cfg.Credits)
	if text == "" {
		text = "no credits configured"
	}
	drawPanel(s, area, 48, func(w int) []string { return wrap(text, w) })
}

func (p *Player) drawRecent(s tcell.Screen, area Rect) {
	var lines []string
	if p.cfg.Recent != nil {
		lines = p.cfg.Recent()
	}
	if len(lines) == 0 {
		lines = []string{"no sessions played yet"}
	}
	drawPanel(s, area, 64, func(int) []string { return append([]string{"recent sessions"}, lines...) })
}

// drawPanel centres a boxed list of lines of at most maxW cells in area.
func drawPanel(s tcell.Screen, area Rect, maxW int, content func(width int) []string) {
	boxW := min(area.W-2, maxW)
	if boxW < 8 {
		return
	}
	lines := content(boxW - 4)
	boxH := min(area.H-2, len(lines)+2)
	box := Rect{X: area.X + (area.W-boxW)/2, Y: area.Y + (area.H-boxH)/2, W: boxW, H: boxH}
	fill(s, box, styleCredits)
	for i, line := range lines {
		if i >= boxH-2 {
			break
		}
		drawText(s, box.X+2, box.Y+1+i, boxW-4, line, styleCredits)
	}
}

func fill(s tcell.Screen, r Rect, style tcell.Style) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			s.SetContent(x, y, ' ', nil, style)
		}
	}
}

// drawText writes text truncated to width cells.
func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "…")
	}
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

// wrap splits text into lines of at most width cells, breaking on spaces.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case runewidth.StringWidth(line)+1+runewidth.StringWidth(word) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}
