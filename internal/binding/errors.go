// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/binding/errors.go
// Summary: Per-target binding and model load failures.

package binding

import "fmt"

// MediaBindingError reports a binding that was skipped.
type MediaBindingError struct {
	TargetIndex int
	Position    int
	Err         error
}

func (e *MediaBindingError) Error() string {
	return fmt.Sprintf("binding %d (target %d): %v", e.Position, e.TargetIndex, e.Err)
}

func (e *MediaBindingError) Unwrap() error { return e.Err }

// ModelLoadError reports a model that failed to load; the rest of the target stays bound.
type ModelLoadError struct {
	TargetIndex int
	Src         string
	Err         error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("target %d: load model %s: %v", e.TargetIndex, e.Src, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }
