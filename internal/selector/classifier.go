// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/selector/classifier.go
// Summary: Classifier boundary, frame preprocessing and argmax.

package selector

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// InputSize is the square edge the classifier expects.
const InputSize = 224

// Channel scales applied by Preprocess. RawInputScale keeps 0-255 values.
const (
	RawInputScale  float32 = 1
	UnitInputScale float32 = 1.0 / 255
)

// Tensor is an interleaved RGB frame, row major.
type Tensor struct {
	Width  int       `msgpack:"width"`
	Height int       `msgpack:"height"`
	Data   []float32 `msgpack:"data"`
}

// Classifier returns one probability per class, aligned to the label table.
type Classifier interface {
	Predict(ctx context.Context, input Tensor) ([]float32, error)
	Close() error
}

// Loader loads a classifier model.
type Loader interface {
	Load(ctx context.Context, modelPath string) (Classifier, error)
}

// Preprocess resizes img to size×size with nearest-neighbour sampling and
// multiplies each 0-255 channel by scale. A non-positive scale means RawInputScale.
func Preprocess(img image.Image, size int, scale float32) (Tensor, error) {
	if img == nil {
		return Tensor{}, &ClassificationError{Stage: "capture", Err: fmt.Errorf("no frame")}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Tensor{}, &ClassificationError{Stage: "capture", Err: fmt.Errorf("invalid frame dimensions %dx%d", b.Dx(), b.Dy())}
	}
	if size <= 0 {
		size = InputSize
	}
	if scale <= 0 {
		scale = RawInputScale
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	data := make([]float32, 0, size*size*3)
	for i := 0; i < len(dst.Pix); i += 4 {
		data = append(data,
			float32(dst.Pix[i])*scale,
			float32(dst.Pix[i+1])*scale,
			float32(dst.Pix[i+2])*scale,
		)
	}
	return Tensor{Width: size, Height: size, Data: data}, nil
}

// Argmax returns the index of the highest probability. Comparison is strictly
// greater than the best so far, starting from zero, so the first maximum wins
// and an all-zero (or empty) slice proposes nothing.
func Argmax(probs []float32) (int, bool) {
	best := -1
	var bestP float32
	for i, p := range probs {
		if p > bestP {
			best = i
			bestP = p
		}
	}
	return best, best >= 0
}
