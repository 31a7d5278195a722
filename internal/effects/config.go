// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/effects/config.go
// Summary: Parses the configured effect chain into pass specs.
// Usage: The session manager reads the "effects.chain" setting through ParsePassSpecs.
// Notes: Entries may be bare IDs ("glow") or objects ({"id": "chromatic", "block_size": 0.05}).

package effects

import (
	"encoding/json"
	"strconv"
)

type PassConfig map[string]interface{}

type PassSpec struct {
	ID     string
	Config PassConfig
}

// DefaultChain is the chromatic + glow chain of the full player.
func DefaultChain() []PassSpec {
	return []PassSpec{{ID: "chromatic"}, {ID: "glow"}}
}

// ParsePassSpecs accepts a JSON string, a decoded []interface{} or []string.
func ParsePassSpecs(raw interface{}) ([]PassSpec, error) {
	var entries []interface{}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(v), &entries); err != nil {
			return nil, err
		}
	case []string:
		for _, id := range v {
			entries = append(entries, id)
		}
	case []interface{}:
		entries = v
	default:
		return nil, nil
	}
	specs := make([]PassSpec, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case string:
			if e != "" {
				specs = append(specs, PassSpec{ID: e})
			}
		case map[string]interface{}:
			idVal, _ := e["id"].(string)
			if idVal == "" {
				continue
			}
			cfg := make(PassConfig)
			for k, v := range e {
				if k == "id" {
					continue
				}
				cfg[k] = v
			}
			specs = append(specs, PassSpec{ID: idVal, Config: cfg})
		}
	}
	return specs, nil
}

func parseFloatOrDefault(cfg PassConfig, key string, fallback float64) float64 {
	if cfg == nil {
		return fallback
	}
	if raw, ok := cfg[key]; ok {
		switch v := raw.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return fallback
}
