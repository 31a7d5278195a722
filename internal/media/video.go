// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/media/video.go
// Summary: Video element with play/pause state and a playback clock.
// Usage: Created per target binding when a session starts, closed when it is disposed.
// Notes: Decoding is out of scope; the element tracks position so planes can tint by time.

package media

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when a closed element is asked to play.
var ErrClosed = errors.New("media: element closed")

// VideoOptions mirrors the attributes a video element is created with.
type VideoOptions struct {
	Loop     bool
	Muted    bool
	Inline   bool
	Duration time.Duration // 0 when unknown
}

// DefaultVideoOptions are the attributes used for target videos.
func DefaultVideoOptions() VideoOptions {
	return VideoOptions{Loop: true, Muted: true, Inline: true}
}

// Video is a playable media element bound to one anchor.
type Video struct {
	mu        sync.Mutex
	src       string
	opts      VideoOptions
	playing   bool
	closed    bool
	position  time.Duration
	resumedAt time.Time
	now       func() time.Time
}

// NewVideo creates a paused video positioned at zero.
func NewVideo(src string, opts VideoOptions) *Video {
	return &Video{src: src, opts: opts, now: time.Now}
}

// Src returns the resolved media location.
func (v *Video) Src() string { return v.src }

// Options returns the creation attributes.
func (v *Video) Options() VideoOptions { return v.opts }

// Play resumes playback from the current position.
func (v *Video) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if v.playing {
		return nil
	}
	v.playing = true
	v.resumedAt = v.now()
	return nil
}

// Pause freezes the position. Pausing a paused or closed video is a no-op.
func (v *Video) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return
	}
	v.position = v.positionLocked()
	v.playing = false
}

// Playing reports whether the video is running.
func (v *Video) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// Position returns the current playback position, wrapped when looping.
func (v *Video) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positionLocked()
}

func (v *Video) positionLocked() time.Duration {
	pos := v.position
	if v.playing {
		pos += v.now().Sub(v.resumedAt)
	}
	if v.opts.Duration > 0 {
		if v.opts.Loop {
			pos %= v.opts.Duration
		} else if pos > v.opts.Duration {
			pos = v.opts.Duration
		}
	}
	return pos
}

// Close stops playback and detaches the element for good.
func (v *Video) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = false
	v.closed = true
}

// Closed reports whether Close was called.
func (v *Video) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
