// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/media/model.go
// Summary: Loads binary glTF model handles for target bindings.

package media

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	glbMagic      = 0x46546C67 // "glTF"
	glbHeaderSize = 12
)

// Model is a loaded 3D asset handle. The asset itself is opaque to the player.
type Model struct {
	Src     string
	Version uint32
	Length  uint32
}

// ModelLoader fetches model assets.
type ModelLoader interface {
	Load(ctx context.Context, src string) (*Model, error)
}

// GLBLoader validates the binary glTF container header and returns a handle.
type GLBLoader struct {
	Fetcher Fetcher
}

func (l GLBLoader) Load(ctx context.Context, src string) (*Model, error) {
	rc, err := l.Fetcher.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var header [glbHeaderSize]byte
	if _, err := io.ReadFull(rc, header[:]); err != nil {
		return nil, fmt.Errorf("read glb header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != glbMagic {
		return nil, fmt.Errorf("not a binary glTF file (magic %#x)", magic)
	}
	version := binary.LittleEndian.Uint32(header[4:8])
	if version != 2 {
		return nil, fmt.Errorf("unsupported glTF version %d", version)
	}
	length := binary.LittleEndian.Uint32(header[8:12])
	if length < glbHeaderSize {
		return nil, fmt.Errorf("invalid glb length %d", length)
	}
	return &Model{Src: src, Version: version, Length: length}, nil
}
