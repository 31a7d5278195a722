// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/env.go
// Summary: TEXELAR_* environment overrides layered over texelar.json.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "TEXELAR_"

// envOverrides are kept as strings so an unset variable never masks a file value.
type envOverrides struct {
	Catalog          string   `env:"CATALOG"`
	Resume           string   `env:"PLAYER_RESUME"`
	Credits          string   `env:"PLAYER_CREDITS"`
	RenderIntervalMS string   `env:"RENDER_INTERVAL_MS"`
	EffectsChain     []string `env:"EFFECTS_CHAIN" envSeparator:","`
	SelectorCommand  string   `env:"SELECTOR_COMMAND"`
	SelectorModel    string   `env:"SELECTOR_MODEL"`
	InputScale       string   `env:"SELECTOR_INPUT_SCALE"`
	MQTTBroker       string   `env:"MQTT_BROKER"`
	MQTTPrefix       string   `env:"MQTT_PREFIX"`
	OTelEnabled      string   `env:"OTEL_ENABLED"`
	OTelEndpoint     string   `env:"OTEL_ENDPOINT"`
}

func applyEnv(cfg Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	overrides := []struct {
		section, key, value string
	}{
		{"", "catalog", o.Catalog},
		{"player", "resume", o.Resume},
		{"player", "credits", o.Credits},
		{"render", "interval_ms", o.RenderIntervalMS},
		{"selector", "command", o.SelectorCommand},
		{"selector", "model", o.SelectorModel},
		{"selector", "input_scale", o.InputScale},
		{"mqtt", "broker", o.MQTTBroker},
		{"mqtt", "prefix", o.MQTTPrefix},
		{"otel", "enabled", o.OTelEnabled},
		{"otel", "endpoint", o.OTelEndpoint},
	}
	for _, ov := range overrides {
		if ov.value != "" {
			cfg.Set(ov.section, ov.key, ov.value)
		}
	}
	if len(o.EffectsChain) > 0 {
		chain := make([]interface{}, 0, len(o.EffectsChain))
		for _, id := range o.EffectsChain {
			chain = append(chain, id)
		}
		cfg.Set("effects", "chain", chain)
	}
	return nil
}
