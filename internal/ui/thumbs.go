// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ui/thumbs.go
// Summary: Loads experience thumbnails for the menu.

package ui

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/framegrace/texelar/internal/media"
)

// Thumbnail pixel size: thumbCols cells wide, thumbRows cells (two pixels each) high.
const (
	thumbCols = 8
	thumbRows = 3
)

// LoadThumbnail fetches and decodes a png, jpeg or webp image and shrinks it
// to menu size.
func LoadThumbnail(ctx context.Context, fetcher media.Fetcher, location string) (image.Image, error) {
	rc, err := fetcher.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, format, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail %s: %w", location, err)
	}
	debugLog.Printf("UI: thumbnail %s decoded as %s %v", location, format, img.Bounds().Size())

	b := img.Bounds()
	w, h := fit(b.Dx(), b.Dy(), thumbCols, thumbRows*2)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("thumbnail %s is empty", location)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}
