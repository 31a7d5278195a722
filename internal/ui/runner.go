// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ui/runner.go
// Summary: Runs the player inside a tcell screen until the user quits or ctx ends.

package ui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
)

var screenFactory = tcell.NewScreen

// SetScreenFactory overrides the screen factory used by Run. Passing nil restores the default.
func SetScreenFactory(factory func() (tcell.Screen, error)) {
	if factory == nil {
		screenFactory = tcell.NewScreen
		return
	}
	screenFactory = factory
}

type stopEvent struct{}

// Run draws the player and dispatches input until quit.
func Run(ctx context.Context, p *Player) error {
	screen, err := screenFactory()
	if err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()
	screen.Clear()
	screen.EnableMouse()
	defer screen.DisableMouse()

	width, height := screen.Size()
	p.Resize(width, height)
	refreshCh := make(chan bool, 1)
	p.SetRefreshNotifier(refreshCh)
	defer p.SetRefreshNotifier(nil)

	draw := func() {
		p.Draw(screen)
		screen.Show()
	}
	draw()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				screen.PostEvent(tcell.NewEventInterrupt(stopEvent{}))
				return
			case <-refreshCh:
				screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	for {
		ev := screen.PollEvent()
		switch tev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if _, stop := tev.Data().(stopEvent); stop {
				return nil
			}
			draw()
		case *tcell.EventResize:
			w, h := tev.Size()
			p.Resize(w, h)
			screen.Sync()
			draw()
		case *tcell.EventKey:
			if p.HandleKey(tev) {
				return nil
			}
			draw()
		case *tcell.EventMouse:
			p.HandleMouse(tev)
			draw()
		}
	}
}
