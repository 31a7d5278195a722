// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/session/observer.go
// Summary: Notifications emitted by the session manager.
// Usage: Implemented by the history journal, MQTT telemetry and the terminal UI.

package session

import (
	"time"

	"github.com/framegrace/texelar/internal/tracking"
)

// Info identifies one session.
type Info struct {
	ID        string
	Folder    string
	Name      string
	StartedAt time.Time
}

// Observer receives lifecycle and target notifications. Calls happen on the
// goroutine that caused them and must not block.
type Observer interface {
	SessionStarted(info Info)
	SessionEnded(info Info, err error)
	SessionFailed(info Info, err error)
	TargetEvent(info Info, kind tracking.EventKind, targetIndex int)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	Started func(Info)
	Ended   func(Info, error)
	Failed  func(Info, error)
	Target  func(Info, tracking.EventKind, int)
}

func (o ObserverFuncs) SessionStarted(info Info) {
	if o.Started != nil {
		o.Started(info)
	}
}

func (o ObserverFuncs) SessionEnded(info Info, err error) {
	if o.Ended != nil {
		o.Ended(info, err)
	}
}

func (o ObserverFuncs) SessionFailed(info Info, err error) {
	if o.Failed != nil {
		o.Failed(info, err)
	}
}

func (o ObserverFuncs) TargetEvent(info Info, kind tracking.EventKind, targetIndex int) {
	if o.Target != nil {
		o.Target(info, kind, targetIndex)
	}
}
