// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/selector/selector.go
// Summary: Periodically classifies the camera feed and selects the matching experience.
// Usage: Enabled with -auto; runs until its context is cancelled.
// Notes: A cycle never selects while the session manager is busy or for the class already detected.

package selector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/framegrace/texelar/catalog"
	"github.com/framegrace/texelar/internal/camera"
)

// DefaultInterval is the time between classification cycles.
const DefaultInterval = 3 * time.Second

// SessionManager is the part of the session manager the selector drives.
// TrySelect reports false, without selecting, while another selection or
// disposal is in flight.
type SessionManager interface {
	TrySelect(ctx context.Context, exp *catalog.Experience) (bool, error)
}

// Experiences resolves folders to experiences.
type Experiences interface {
	Lookup(folder string) (*catalog.Experience, bool)
}

// Config wires a Selector.
type Config struct {
	Classifier  Classifier
	Camera      camera.Source
	Manager     SessionManager
	Experiences Experiences
	// Labels is the class table, index-aligned with classifier output.
	Labels []string
	// Folders maps a label to an experience folder; labels without an entry
	// match the folder of the same name.
	Folders  map[string]string
	Interval time.Duration
	// InputScale multiplies each 0-255 channel before inference; zero keeps raw values.
	InputScale float32
}

// Outcome describes one classification cycle.
type Outcome struct {
	Label    string
	Folder   string
	Selected bool
	Reason   string
}

// Selector is the classifier-driven selection strategy.
type Selector struct {
	cfg Config

	mu        sync.Mutex
	lastLabel string
}

// New validates cfg and returns a selector.
func New(cfg Config) (*Selector, error) {
	if cfg.Classifier == nil || cfg.Camera == nil || cfg.Manager == nil || cfg.Experiences == nil {
		return nil, errors.New("selector: classifier, camera, manager and experiences are required")
	}
	if len(cfg.Labels) == 0 {
		return nil, errors.New("selector: empty label table")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Selector{cfg: cfg}, nil
}

// Run classifies every interval until ctx is done.
func (s *Selector) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			out, err := s.Cycle(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Selector: cycle skipped: %v", err)
				continue
			}
			if out.Selected {
				log.Printf("Selector: selected %s (class %s)", out.Folder, out.Label)
			} else if out.Reason != "" {
				debugLog.Printf("Selector: %s", out.Reason)
			}
		}
	}
}

// Cycle runs one capture-classify-select round.
func (s *Selector) Cycle(ctx context.Context) (Outcome, error) {
	frame, err := s.cfg.Camera.Capture(ctx)
	if err != nil {
		return Outcome{}, &ClassificationError{Stage: "capture", Err: err}
	}
	input, err := Preprocess(frame, InputSize, s.cfg.InputScale)
	if err != nil {
		return Outcome{}, err
	}
	probs, err := s.cfg.Classifier.Predict(ctx, input)
	if err != nil {
		return Outcome{}, &ClassificationError{Stage: "inference", Err: err}
	}
	if len(probs) != len(s.cfg.Labels) {
		return Outcome{}, &ClassificationError{
			Stage: "inference",
			Err:   fmt.Errorf("got %d probabilities for %d labels", len(probs), len(s.cfg.Labels)),
		}
	}

	idx, ok := Argmax(probs)
	if !ok {
		return Outcome{Reason: "no class detected"}, nil
	}
	label := s.cfg.Labels[idx]
	out := Outcome{Label: label}

	folder := label
	if mapped, ok := s.cfg.Folders[label]; ok {
		folder = mapped
	}
	out.Folder = folder
	exp, ok := s.cfg.Experiences.Lookup(folder)
	if !ok {
		out.Reason = fmt.Sprintf("class %s matches no experience", label)
		return out, nil
	}

	s.mu.Lock()
	same := label == s.lastLabel
	s.mu.Unlock()
	if same {
		out.Reason = fmt.Sprintf("class %s already detected", label)
		return out, nil
	}
	started, err := s.cfg.Manager.TrySelect(ctx, exp)
	if !started {
		out.Reason = "selection in flight"
		return out, err
	}
	if err != nil {
		s.mu.Lock()
		s.lastLabel = ""
		s.mu.Unlock()
		return out, fmt.Errorf("select %s: %w", folder, err)
	}
	s.mu.Lock()
	s.lastLabel = label
	s.mu.Unlock()
	out.Selected = true
	return out, nil
}

func (s *Selector) lastDetected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLabel
}
