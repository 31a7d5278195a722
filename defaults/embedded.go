// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: defaults/embedded.go
// Summary: Embedded default configuration and the bundled demo catalog.

package defaults

import (
	"embed"
	"io/fs"
)

// DemoCatalog is the catalog location inside Demo().
const DemoCatalog = "catalog.json"

//go:embed texelar.json demo
var files embed.FS

// Config returns the embedded texelar.json.
func Config() ([]byte, error) {
	return files.ReadFile("texelar.json")
}

// Demo returns the demo experience bundle rooted at its catalog.
func Demo() fs.FS {
	sub, err := fs.Sub(files, "demo")
	if err != nil {
		panic(err)
	}
	return sub
}
