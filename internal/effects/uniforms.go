// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/effects/uniforms.go
// Summary: Live uniform values shared by the post-processing passes.
// Usage: Target callbacks apply or reset intensities; the render loop advances time.
// Notes: Passes read a snapshot per frame, so concurrent resets never need a rebuild.

package effects

import "sync"

// Params are the per-target effect intensities.
type Params struct {
	Amount        float64 // chromatic shift
	GlitchAmount  float64
	GlowIntensity float64
}

// Values is a consistent view of every uniform for one frame.
type Values struct {
	Params
	Time float64 // seconds since session start
}

// Uniforms holds the effect pipeline state of one session.
type Uniforms struct {
	mu sync.RWMutex
	v  Values
}

// NewUniforms returns neutral uniforms.
func NewUniforms() *Uniforms { return &Uniforms{} }

// Apply pushes a binding's intensities. Non-positive glitch amounts disable the glitch.
func (u *Uniforms) Apply(p Params) {
	if p.GlitchAmount < 0 {
		p.GlitchAmount = 0
	}
	u.mu.Lock()
	u.v.Params = p
	u.mu.Unlock()
}

// Reset returns every intensity to neutral. Time keeps running.
func (u *Uniforms) Reset() {
	u.mu.Lock()
	u.v.Params = Params{}
	u.mu.Unlock()
}

// SetTime writes the time uniform.
func (u *Uniforms) SetTime(seconds float64) {
	u.mu.Lock()
	u.v.Time = seconds
	u.mu.Unlock()
}

// Snapshot returns the current values.
func (u *Uniforms) Snapshot() Values {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.v
}

// Neutral reports whether all intensities are zero.
func (v Values) Neutral() bool {
	return v.Amount == 0 && v.GlitchAmount == 0 && v.GlowIntensity == 0
}
