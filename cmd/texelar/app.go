// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelar/app.go
// Summary: Builds the player from configuration and wires its components together.
// Notes: Every entry point (keys, MQTT, startup, classifier) selects through the control bus or the manager.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/framegrace/texelar/catalog"
	"github.com/framegrace/texelar/config"
	"github.com/framegrace/texelar/defaults"
	"github.com/framegrace/texelar/internal/camera"
	"github.com/framegrace/texelar/internal/control"
	"github.com/framegrace/texelar/internal/effects"
	"github.com/framegrace/texelar/internal/history"
	"github.com/framegrace/texelar/internal/media"
	"github.com/framegrace/texelar/internal/render"
	"github.com/framegrace/texelar/internal/selector"
	"github.com/framegrace/texelar/internal/session"
	"github.com/framegrace/texelar/internal/telemetry"
	"github.com/framegrace/texelar/internal/tracking"
	"github.com/framegrace/texelar/internal/ui"
)

// Options are the command-line choices that override configuration.
type Options struct {
	Catalog       string
	Experience    string
	Auto          bool
	ClassifierCmd string
	Model         string
	CameraDir     string
	Headless      bool
	HistoryPath   string
}

type app struct {
	opts Options
	cfg  config.Config

	fetcher  media.Fetcher
	catalog  *catalog.Catalog
	camera   camera.Source
	manager  *session.Manager
	journal  *history.Journal
	bus      *control.Bus
	snapshot *render.Snapshot
	player   *ui.Player
	mqtt     *telemetry.Publisher

	classifier selector.Classifier
	cancel     context.CancelFunc
	done       chan struct{}
}

func newApp(ctx context.Context, opts Options, cfg config.Config) (*app, error) {
	a := &app{
		opts:     opts,
		cfg:      cfg,
		bus:      control.NewBus(),
		snapshot: &render.Snapshot{},
		done:     make(chan struct{}),
	}

	location := opts.Catalog
	if location == "" {
		location = cfg.GetString("", "catalog", "")
	}
	if location == "" {
		a.fetcher = media.FSFetcher{FS: defaults.Demo()}
		location = defaults.DemoCatalog
	} else {
		a.fetcher = media.NewFetcher("")
	}
	cat, err := catalog.Load(ctx, a.fetcher, location)
	if err != nil {
		return nil, err
	}
	if cat.Len() == 0 {
		return nil, fmt.Errorf("catalog %s has no usable experiences", location)
	}
	a.catalog = cat

	width := cfg.GetInt("render", "width", 320)
	height := cfg.GetInt("render", "height", 180)
	if opts.CameraDir != "" {
		dir, err := camera.OpenDirectory(opts.CameraDir)
		if err != nil {
			return nil, err
		}
		a.camera = dir
	} else {
		a.camera = camera.NewPattern(width, height)
	}

	chain, err := effects.ParsePassSpecs(cfg.Value("effects", "chain"))
	if err != nil {
		log.Printf("Player: invalid effects.chain, using defaults: %v", err)
		chain = nil
	}

	var presenter render.Presenter = a.snapshot
	if !opts.Headless {
		viewport := ui.NewViewport()
		presenter = render.Fanout{viewport, a.snapshot}
		a.player = ui.New(ui.Config{
			Bus:      a.bus,
			Entries:  a.menuEntries(ctx),
			Credits:  cfg.GetString("player", "credits", ""),
			Viewport: viewport,
			Status:   a.status,
			Recent:   a.recentLines,
		})
	}

	interval := cfg.GetMillis("render", "interval_ms", 0)
	a.manager = session.NewManager(session.Config{
		Resolver: cat,
		Factory: &tracking.ScriptedFactory{
			Fetcher: a.fetcher,
			Camera:  a.camera,
			Width:   width,
			Height:  height,
		},
		Models:        media.GLBLoader{Fetcher: a.fetcher},
		Presenter:     presenter,
		Chain:         chain,
		FrameInterval: interval,
	})
	a.manager.AddObserver(session.ObserverFuncs{
		Started: func(info session.Info) {
			log.Printf("Player: session %s started: %s", info.ID, info.Folder)
		},
		Ended: func(info session.Info, err error) {
			if a.player != nil {
				a.player.Viewport().Clear()
				a.player.Refresh()
			}
		},
		Failed: func(info session.Info, err error) {
			log.Printf("Player: session %s failed: %v", info.ID, err)
			if a.player != nil {
				a.player.SetMessage(err.Error())
			}
		},
	})

	if journal, err := history.Open(opts.HistoryPath); err != nil {
		log.Printf("History: disabled: %v", err)
	} else {
		a.journal = journal
		a.manager.AddObserver(journal)
	}

	if err := a.registerControls(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) menuEntries(ctx context.Context) []ui.Entry {
	exps := a.catalog.Experiences()
	entries := make([]ui.Entry, 0, len(exps))
	for _, exp := range exps {
		e := ui.Entry{Folder: exp.Folder, Name: exp.Name}
		if loc := a.catalog.Thumbnail(exp); loc != "" {
			thumb, err := ui.LoadThumbnail(ctx, a.fetcher, loc)
			if err != nil {
				log.Printf("Player: thumbnail for %s: %v", exp.Folder, err)
			} else {
				e.Thumb = thumb
			}
		}
		entries = append(entries, e)
	}
	return entries
}

func (a *app) status() ui.Status {
	st := ui.Status{State: a.manager.State().String()}
	if info, ok := a.manager.Session(); ok {
		st.Folder = info.Folder
		st.Name = info.Name
	}
	return st
}

const recentLimit = 10

type recentReply struct {
	Folder    string    `json:"folder"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Found     int       `json:"found"`
}

func (a *app) recent() ([]recentReply, error) {
	if a.journal == nil {
		return nil, errors.New("history is disabled")
	}
	entries, err := a.journal.Recent(recentLimit)
	if err != nil {
		return nil, err
	}
	out := make([]recentReply, 0, len(entries))
	for _, e := range entries {
		out = append(out, recentReply{
			Folder:    e.Folder,
			Name:      e.Name,
			StartedAt: e.StartedAt,
			Status:    e.Status,
			Error:     e.Error,
			Found:     e.Found,
		})
	}
	return out, nil
}

// recentLines formats the journal for the player's recent-sessions panel.
func (a *app) recentLines() []string {
	entries, err := a.recent()
	if err != nil {
		return []string{err.Error()}
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s  %s · %s · %d found",
			e.StartedAt.Local().Format("01-02 15:04"), e.Name, e.Status, e.Found))
	}
	return lines
}

type statusReply struct {
	State   string `json:"state"`
	Busy    bool   `json:"busy"`
	Folder  string `json:"folder,omitempty"`
	Name    string `json:"name,omitempty"`
	Session string `json:"session,omitempty"`
	Frames  uint64 `json:"frames"`
}

func (a *app) registerControls() error {
	ctx := context.Background()
	controls := []struct {
		id, desc string
		fn       control.Handler
	}{
		{control.Select, "Switch to the experience folder given as argument", func(folder string) (interface{}, error) {
			exp, ok := a.catalog.Lookup(folder)
			if !ok {
				return nil, fmt.Errorf("unknown experience %q", folder)
			}
			if err := a.manager.Select(ctx, exp); err != nil {
				return nil, err
			}
			return statusReply{State: a.manager.State().String(), Folder: exp.Folder, Name: exp.Name}, nil
		}},
		{control.Dispose, "End the running experience", func(string) (interface{}, error) {
			return nil, a.manager.Dispose(ctx)
		}},
		{control.Status, "Report the player state", func(string) (interface{}, error) {
			reply := statusReply{State: a.manager.State().String(), Busy: a.manager.Busy(), Frames: a.snapshot.Frames()}
			if info, ok := a.manager.Session(); ok {
				reply.Folder, reply.Name, reply.Session = info.Folder, info.Name, info.ID
			}
			return reply, nil
		}},
		{control.History, "List recently played sessions", func(string) (interface{}, error) {
			return a.recent()
		}},
		{control.Credits, "Toggle the credits panel", func(string) (interface{}, error) {
			if a.player == nil {
				return a.cfg.GetString("player", "credits", ""), nil
			}
			return a.player.ToggleCredits(), nil
		}},
	}
	for _, c := range controls {
		if err := a.bus.Register(c.id, c.desc, c.fn); err != nil {
			return err
		}
	}
	return nil
}

// Start connects optional services and kicks off the first experience.
func (a *app) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if broker := a.cfg.GetString("mqtt", "broker", ""); broker != "" {
		pub, err := telemetry.ConnectMQTT(telemetry.MQTTConfig{
			Broker:   broker,
			ClientID: a.cfg.GetString("mqtt", "client_id", "texelar"),
			Prefix:   a.cfg.GetString("mqtt", "prefix", "texelar"),
			QoS:      byte(a.cfg.GetInt("mqtt", "qos", 0)),
		})
		if err != nil {
			log.Printf("Telemetry: mqtt disabled: %v", err)
		} else {
			a.mqtt = pub
			a.manager.AddObserver(pub)
			if err := pub.ServeControl(runCtx, a.bus); err != nil {
				log.Printf("Telemetry: remote control disabled: %v", err)
			}
		}
	}

	if a.opts.Auto {
		return a.startSelector(runCtx)
	}
	close(a.done)

	exp, err := a.startupExperience()
	if err != nil {
		return err
	}
	if exp == nil {
		return nil
	}
	delay := a.cfg.GetMillis("player", "startup_delay_ms", 100*time.Millisecond)
	go func() {
		select {
		case <-runCtx.Done():
			return
		case <-time.After(delay):
		}
		if _, err := a.bus.Trigger(control.Select, exp.Folder); err != nil {
			log.Printf("Player: startup experience %s: %v", exp.Folder, err)
		}
	}()
	return nil
}

// startupExperience picks the experience to load without user input.
func (a *app) startupExperience() (*catalog.Experience, error) {
	if a.opts.Experience != "" {
		exp, ok := a.catalog.Lookup(a.opts.Experience)
		if !ok {
			return nil, fmt.Errorf("experience %q not in catalog", a.opts.Experience)
		}
		return exp, nil
	}
	if !a.cfg.GetBool("player", "autoload", true) {
		return nil, nil
	}
	var last string
	if a.journal != nil && a.cfg.GetBool("player", "resume", true) {
		folder, ok, err := a.journal.LastExperience()
		if err != nil {
			log.Printf("History: last experience: %v", err)
		} else if ok {
			last = folder
		}
	}
	return chooseStartup(a.catalog, last), nil
}

// chooseStartup returns the remembered experience when it is still in the
// catalog, otherwise the first entry.
func chooseStartup(cat *catalog.Catalog, last string) *catalog.Experience {
	if last != "" {
		if exp, ok := cat.Lookup(last); ok {
			return exp
		}
	}
	return cat.At(0)
}

func (a *app) startSelector(ctx context.Context) error {
	command := a.opts.ClassifierCmd
	if command == "" {
		command = a.cfg.GetString("selector", "command", "")
	}
	model := a.opts.Model
	if model == "" {
		model = a.cfg.GetString("selector", "model", "")
	}
	loader := selector.WorkerLoader{
		Command: command,
		Timeout: a.cfg.GetMillis("selector", "timeout_ms", 10*time.Second),
	}
	classifier, err := loader.Load(ctx, model)
	if err != nil {
		close(a.done)
		return fmt.Errorf("load classifier: %w", err)
	}
	a.classifier = classifier

	labels := a.cfg.GetStringSlice("selector", "labels", nil)
	if len(labels) == 0 {
		labels = a.catalog.Labels()
	}
	sel, err := selector.New(selector.Config{
		Classifier:  classifier,
		Camera:      a.camera,
		Manager:     a.manager,
		Experiences: a.catalog,
		Labels:      labels,
		Interval:    a.cfg.GetMillis("selector", "interval_ms", selector.DefaultInterval),
		InputScale:  float32(a.cfg.GetFloat("selector", "input_scale", float64(selector.RawInputScale))),
	})
	if err != nil {
		close(a.done)
		return err
	}
	go func() {
		defer close(a.done)
		if err := sel.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Selector: stopped: %v", err)
		}
	}()
	return nil
}

// Close stops background work, disposes the session and releases resources.
func (a *app) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	var errs []error
	if err := a.manager.Dispose(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if a.classifier != nil {
		if err := a.classifier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.camera.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
