// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/effects/registry.go
// Summary: Registry of post-processing pass factories.
// Usage: Sessions build their effect chain from the configured pass IDs.

package effects

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Factory constructs a pass given its configuration map.
type Factory func(PassConfig) (Pass, error)

// Register associates a pass ID with a factory. It panics on duplicate IDs.
func Register(id string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[id]; exists {
		panic("effects: duplicate registration for " + id)
	}
	registry[id] = factory
}

// Lookup fetches a factory by ID.
func Lookup(id string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[id]
	return f, ok
}

func registeredIDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildChain instantiates the passes named in specs, in order.
func BuildChain(specs []PassSpec) ([]Pass, error) {
	passes := make([]Pass, 0, len(specs))
	for _, spec := range specs {
		factory, ok := Lookup(spec.ID)
		if !ok {
			return nil, fmt.Errorf("effects: unknown pass %q (registered: %s)", spec.ID, strings.Join(registeredIDs(), ", "))
		}
		p, err := factory(spec.Config)
		if err != nil {
			return nil, fmt.Errorf("effects: build %q: %w", spec.ID, err)
		}
		passes = append(passes, p)
	}
	return passes, nil
}

func init() {
	Register("chromatic", func(cfg PassConfig) (Pass, error) {
		return newChromaticPass(parseFloatOrDefault(cfg, "block_size", defaultBlockSize)), nil
	})
	Register("glow", func(PassConfig) (Pass, error) {
		return GlowPass{}, nil
	})
}
