// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/session/state.go
// Summary: Lifecycle states of the session manager and their allowed transitions.

package session

import (
	"errors"
	"fmt"
)

// State is the lifecycle phase of the manager.
type State int

const (
	Idle State = iota
	Disposing
	Constructing
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Disposing:
		return "disposing"
	case Constructing:
		return "constructing"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("session: invalid state transition")

var transitions = map[State][]State{
	Idle:         {Disposing, Constructing},
	Disposing:    {Constructing, Idle},
	Constructing: {Active, Idle},
	Active:       {Disposing},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
