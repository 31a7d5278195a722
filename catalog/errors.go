// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: catalog/errors.go
// Summary: Configuration errors reported for skipped catalog entries.

package catalog

import "fmt"

// ConfigurationError describes a malformed experience entry.
type ConfigurationError struct {
	Index  int
	Folder string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Folder != "" {
		return fmt.Sprintf("experience %d (%s): %v", e.Index, e.Folder, e.Err)
	}
	return fmt.Sprintf("experience %d: %v", e.Index, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
