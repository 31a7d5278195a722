// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/effects/glow.go
// Summary: Glow pass scaling colour by (1 + glowIntensity).

package effects

import "image"

// GlowPass brightens the frame by the glow intensity uniform.
type GlowPass struct{}

func (GlowPass) ID() string { return "glow" }

func (GlowPass) Process(in *image.RGBA, u Values) (*image.RGBA, error) {
	if in == nil {
		return nil, errNoInput
	}
	gain := 1 + u.GlowIntensity
	if gain == 1 {
		return in, nil
	}
	if gain < 0 {
		gain = 0
	}
	pix := in.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i+0] = scaleChannel(pix[i+0], gain)
		pix[i+1] = scaleChannel(pix[i+1], gain)
		pix[i+2] = scaleChannel(pix[i+2], gain)
	}
	return in, nil
}

func scaleChannel(c uint8, gain float64) uint8 {
	v := float64(c) * gain
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
