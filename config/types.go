// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/types.go
// Summary: Typed access helpers for config store data.
// Notes: Values arrive as float64 from texelar.json, as int from the registered
// defaults and as strings from TEXELAR_* overrides; every getter accepts all three.

package config

import (
	"strconv"
	"strings"
	"time"
)

// Section returns the named section or nil if missing. The empty name is the root.
func (c Config) Section(sectionName string) Section {
	if c == nil {
		return nil
	}
	if sectionName == "" {
		return Section(c)
	}
	switch v := c[sectionName].(type) {
	case Section:
		return v
	case map[string]interface{}:
		return Section(v)
	}
	return nil
}

// RegisterDefaults ensures a section has defaults without overwriting existing keys.
func (c Config) RegisterDefaults(sectionName string, defaults Section) {
	for key, value := range defaults {
		if c.Value(sectionName, key) == nil {
			c.Set(sectionName, key, value)
		}
	}
}

// Set stores a value, creating the section when needed.
func (c Config) Set(sectionName, key string, value interface{}) {
	if c == nil {
		return
	}
	section := c.Section(sectionName)
	if section == nil {
		section = make(Section)
		c[sectionName] = section
	}
	section[key] = value
}

// Value returns the raw value of a key, or nil.
func (c Config) Value(sectionName, key string) interface{} {
	section := c.Section(sectionName)
	if section == nil {
		return nil
	}
	return section[key]
}

// GetString retrieves a string value from the config.
func (c Config) GetString(sectionName, key, defaultValue string) string {
	if s, ok := c.Value(sectionName, key).(string); ok {
		return s
	}
	return defaultValue
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// GetFloat retrieves a numeric value.
func (c Config) GetFloat(sectionName, key string, defaultValue float64) float64 {
	if f, ok := number(c.Value(sectionName, key)); ok {
		return f
	}
	return defaultValue
}

// GetInt retrieves a numeric value truncated to an int.
func (c Config) GetInt(sectionName, key string, defaultValue int) int {
	if f, ok := number(c.Value(sectionName, key)); ok {
		return int(f)
	}
	return defaultValue
}

// GetBool retrieves a boolean; "true"/"false" strings and non-zero numbers are accepted.
func (c Config) GetBool(sectionName, key string, defaultValue bool) bool {
	switch v := c.Value(sectionName, key).(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	default:
		if f, ok := number(v); ok {
			return f != 0
		}
	}
	return defaultValue
}

// GetStringSlice retrieves a list of strings. A comma separated string is
// accepted as well.
func (c Config) GetStringSlice(sectionName, key string, defaultValue []string) []string {
	switch v := c.Value(sectionName, key).(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return defaultValue
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// GetMillis retrieves an integer millisecond value as a duration. Negative
// values fall back to the default.
func (c Config) GetMillis(sectionName, key string, defaultValue time.Duration) time.Duration {
	ms := c.GetInt(sectionName, key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
