// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/clone.go
// Summary: Clone helpers for config maps.

package config

// Clone returns a deep copy of the config, including nested sections and
// lists such as the effect chain.
func Clone(cfg Config) Config {
	if cfg == nil {
		return nil
	}
	clone := make(Config, len(cfg))
	for k, v := range cfg {
		clone[k] = cloneValue(v)
	}
	return clone
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Section:
		out := make(Section, len(val))
		for k, sv := range val {
			out[k] = cloneValue(sv)
		}
		return out
	case map[string]interface{}:
		out := make(Section, len(val))
		for k, sv := range val {
			out[k] = cloneValue(sv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
