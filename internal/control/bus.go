// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/control/bus.go
// Summary: Named player controls triggered by keys, remote commands and the CLI.
// Usage: The player registers select/dispose/credits; MQTT and the UI trigger them by id.

package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Well-known control ids.
const (
	Select  = "select"
	Dispose = "dispose"
	Credits = "credits"
	Status  = "status"
	History = "history"
)

// Handler processes a control trigger with an optional argument.
type Handler func(arg string) (interface{}, error)

// Capability describes a registered control.
type Capability struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Bus dispatches controls to their handlers.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	capByID   map[string]Capability
	capSorted []Capability
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]Handler),
		capByID:  make(map[string]Capability),
	}
}

func (b *Bus) Register(id, description string, handler Handler) error {
	if id == "" {
		return errors.New("control: id must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("control: %q must provide a handler", id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[id]; exists {
		return fmt.Errorf("control: %q already registered", id)
	}
	b.handlers[id] = handler
	b.capByID[id] = Capability{ID: id, Description: description}
	b.rebuildCapabilities()
	return nil
}

func (b *Bus) Unregister(id string) {
	if id == "" {
		return
	}
	b.mu.Lock()
	delete(b.handlers, id)
	delete(b.capByID, id)
	b.rebuildCapabilities()
	b.mu.Unlock()
}

func (b *Bus) rebuildCapabilities() {
	b.capSorted = b.capSorted[:0]
	for _, c := range b.capByID {
		b.capSorted = append(b.capSorted, c)
	}
	sort.Slice(b.capSorted, func(i, j int) bool {
		return b.capSorted[i].ID < b.capSorted[j].ID
	})
}

// Trigger runs the handler registered for id.
func (b *Bus) Trigger(id, arg string) (interface{}, error) {
	b.mu.RLock()
	handler, ok := b.handlers[id]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("control: unknown control %q", id)
	}
	return handler(arg)
}

func (b *Bus) Capabilities() []Capability {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Capability, len(b.capSorted))
	copy(out, b.capSorted)
	return out
}

// Command is the wire form of a remote control request.
type Command struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

// ParseCommand accepts either a JSON object or a plain "select poster" line.
func ParseCommand(payload []byte) (Command, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return Command{}, errors.New("control: empty command")
	}
	if strings.HasPrefix(text, "{") {
		var cmd Command
		if err := json.Unmarshal([]byte(text), &cmd); err != nil {
			return Command{}, fmt.Errorf("control: invalid JSON: %w", err)
		}
		if cmd.Command == "" {
			return Command{}, errors.New("control: missing command")
		}
		return cmd, nil
	}
	name, arg, _ := strings.Cut(text, " ")
	return Command{Command: name, Arg: strings.TrimSpace(arg)}, nil
}
