// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for keys missing from texelar.json.

package config

func applyDefaults(cfg Config) {
	if cfg == nil {
		return
	}
	cfg.RegisterDefaults("", Section{
		"catalog": "",
	})
	cfg.RegisterDefaults("player", Section{
		"resume":           true,
		"autoload":         true,
		"startup_delay_ms": 100,
		"credits":          "",
	})
	cfg.RegisterDefaults("render", Section{
		"interval_ms": 16,
		"width":       320,
		"height":      180,
	})
	cfg.RegisterDefaults("effects", Section{
		"chain": []interface{}{"chromatic", "glow"},
	})
	cfg.RegisterDefaults("selector", Section{
		"interval_ms": 3000,
		"command":     "",
		"model":       "",
		"timeout_ms":  10000,
		"input_scale": 1,
	})
	cfg.RegisterDefaults("mqtt", Section{
		"broker":    "",
		"client_id": "texelar",
		"prefix":    "texelar",
		"qos":       0,
	})
	cfg.RegisterDefaults("otel", Section{
		"enabled":  false,
		"endpoint": "",
	})
}
