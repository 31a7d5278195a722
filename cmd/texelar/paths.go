// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelar/paths.go
// Summary: Standard paths for texelar runtime files.

package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds standard file paths for texelar
type Paths struct {
	StateDir    string // ~/.local/state/texelar
	PIDPath     string // <state>/texelar.pid
	HistoryPath string // <state>/history.db
	LogPath     string // <state>/texelar.log
}

// GetPaths returns the standard paths, honouring XDG_STATE_HOME.
func GetPaths() (*Paths, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	stateDir = filepath.Join(stateDir, "texelar")

	return &Paths{
		StateDir:    stateDir,
		PIDPath:     filepath.Join(stateDir, "texelar.pid"),
		HistoryPath: filepath.Join(stateDir, "history.db"),
		LogPath:     filepath.Join(stateDir, "texelar.log"),
	}, nil
}

// EnsureStateDir creates the state directory if it doesn't exist
func (p *Paths) EnsureStateDir() error {
	return os.MkdirAll(p.StateDir, 0755)
}
