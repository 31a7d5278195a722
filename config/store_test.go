// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func resetStore() {
	once = sync.Once{}
	current = nil
	loadErr = nil
}

func TestDefaultsWritten(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetStore()

	cfg := Get()
	if !cfg.GetBool("player", "resume", false) {
		t.Fatalf("expected player.resume to default to true")
	}
	if got := cfg.GetMillis("render", "interval_ms", 0); got != 16*time.Millisecond {
		t.Fatalf("expected 16ms render interval, got %v", got)
	}

	path, err := configPath()
	if err != nil {
		t.Fatalf("configPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	var disk Config
	if err := json.Unmarshal(data, &disk); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if disk.Section("effects") == nil {
		t.Fatalf("expected effects section to be present")
	}
	chain, ok := disk.Value("effects", "chain").([]interface{})
	if !ok || len(chain) != 2 {
		t.Fatalf("expected two-pass effect chain, got %#v", disk.Value("effects", "chain"))
	}
}

func TestSaveWritesUpdates(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetStore()

	Set(Config{
		"player": map[string]interface{}{
			"credits": "made by us",
		},
	})
	if err := Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path, err := configPath()
	if err != nil {
		t.Fatalf("configPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	var disk Config
	if err := json.Unmarshal(data, &disk); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if got := disk.GetString("player", "credits", ""); got != "made by us" {
		t.Fatalf("expected credits to be saved, got %q", got)
	}
}

func TestExistingFileKeepsValuesAndGainsDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	resetStore()

	if err := writeConfig(filepath.Join(root, "texelar", configName), Config{
		"player": map[string]interface{}{
			"resume": false,
		},
	}); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Get()
	if cfg.GetBool("player", "resume", true) {
		t.Fatalf("expected file value player.resume=false to win")
	}
	if got := cfg.GetInt("player", "startup_delay_ms", 0); got != 100 {
		t.Fatalf("expected startup delay default, got %d", got)
	}
	if got := cfg.GetString("mqtt", "prefix", ""); got != "texelar" {
		t.Fatalf("expected mqtt prefix default, got %q", got)
	}
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	resetStore()

	path := filepath.Join(root, "texelar", configName)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := Get()
	if Err() == nil {
		t.Fatalf("expected load error for corrupt file")
	}
	if got := cfg.GetInt("selector", "interval_ms", 0); got != 3000 {
		t.Fatalf("expected selector default, got %d", got)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{not json" {
		t.Fatalf("corrupt file must not be overwritten")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TEXELAR_CATALOG", "https://example.org/catalog.yaml")
	t.Setenv("TEXELAR_PLAYER_RESUME", "false")
	t.Setenv("TEXELAR_RENDER_INTERVAL_MS", "33")
	t.Setenv("TEXELAR_EFFECTS_CHAIN", "glow")
	t.Setenv("TEXELAR_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("TEXELAR_SELECTOR_INPUT_SCALE", "0.00392156")
	resetStore()

	cfg := Get()
	if got := cfg.GetString("", "catalog", ""); got != "https://example.org/catalog.yaml" {
		t.Fatalf("catalog override, got %q", got)
	}
	if cfg.GetBool("player", "resume", true) {
		t.Fatalf("expected resume override to false")
	}
	if got := cfg.GetMillis("render", "interval_ms", 0); got != 33*time.Millisecond {
		t.Fatalf("interval override, got %v", got)
	}
	if got := cfg.GetStringSlice("effects", "chain", nil); len(got) != 1 || got[0] != "glow" {
		t.Fatalf("chain override, got %v", got)
	}
	if got := cfg.GetString("mqtt", "broker", ""); got != "tcp://broker:1883" {
		t.Fatalf("broker override, got %q", got)
	}
	if got := cfg.GetFloat("selector", "input_scale", 1); got != 0.00392156 {
		t.Fatalf("input scale override, got %v", got)
	}
}

func TestGettersAcceptFileDefaultAndEnvValues(t *testing.T) {
	cfg := Config{
		"render": map[string]interface{}{
			"width":       float64(320),
			"height":      "180",
			"interval_ms": -5,
		},
		"player": map[string]interface{}{
			"resume":   "false",
			"autoload": float64(1),
			"credits":  42,
		},
	}
	if got := cfg.GetInt("render", "width", 0); got != 320 {
		t.Fatalf("float width, got %d", got)
	}
	if got := cfg.GetInt("render", "height", 0); got != 180 {
		t.Fatalf("string height, got %d", got)
	}
	if got := cfg.GetMillis("render", "interval_ms", time.Second); got != time.Second {
		t.Fatalf("negative interval must fall back, got %v", got)
	}
	if cfg.GetBool("player", "resume", true) {
		t.Fatalf("string bool not parsed")
	}
	if !cfg.GetBool("player", "autoload", false) {
		t.Fatalf("numeric bool not parsed")
	}
	if got := cfg.GetString("player", "credits", "none"); got != "none" {
		t.Fatalf("non-string credits must fall back, got %q", got)
	}
	if got := cfg.GetFloat("selector", "input_scale", 1); got != 1 {
		t.Fatalf("missing section must fall back, got %v", got)
	}

	cfg.RegisterDefaults("render", Section{"width": 640, "depth": 8})
	if got := cfg.GetInt("render", "width", 0); got != 320 {
		t.Fatalf("defaults must not overwrite, got %d", got)
	}
	if got := cfg.GetInt("render", "depth", 0); got != 8 {
		t.Fatalf("default not registered, got %d", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Config{
		"effects": map[string]interface{}{
			"chain": []interface{}{"glow"},
		},
	}
	clone := Clone(orig)
	clone.Section("effects")["chain"].([]interface{})[0] = "chromatic"
	clone.Set("player", "resume", false)

	if got := orig.GetStringSlice("effects", "chain", nil); got[0] != "glow" {
		t.Fatalf("clone shares the chain slice")
	}
	if orig.Section("player") != nil {
		t.Fatalf("clone shares the root map")
	}
}
