// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: catalog/types.go
// Summary: Experience, target binding and transform types parsed from the catalog document.

package catalog

import (
	"encoding/json"
	"math"

	"gopkg.in/yaml.v3"
)

// Experience is a named bundle of one tracking-target set plus its per-target media.
// Experiences handed out by a Catalog are never mutated; the pointer is their identity.
type Experience struct {
	Folder string          `json:"folder" yaml:"folder"`
	Name   string          `json:"name" yaml:"name"`
	Images []TargetBinding `json:"images" yaml:"images"`
}

// TargetBinding links one target index to its media and effect parameters.
type TargetBinding struct {
	TargetIndex int        `json:"targetIndex" yaml:"targetIndex"`
	Video       string     `json:"video,omitempty" yaml:"video,omitempty"`
	GLBModel    string     `json:"glbModel,omitempty" yaml:"glbModel,omitempty"`
	Transform   *Transform `json:"transform,omitempty" yaml:"transform,omitempty"`
	Properties  Properties `json:"properties" yaml:"properties"`

	// Invalid holds the decode error of a malformed entry. Such bindings stay
	// in the experience so the binder can skip them individually.
	Invalid error `json:"-" yaml:"-"`
}

type plainBinding TargetBinding

func (b *TargetBinding) UnmarshalJSON(data []byte) error {
	var p plainBinding
	err := json.Unmarshal(data, &p)
	if err == nil {
		*b = TargetBinding(p)
		return nil
	}
	*b = TargetBinding{TargetIndex: -1, Invalid: err}
	var idx struct {
		TargetIndex *int `json:"targetIndex"`
	}
	if json.Unmarshal(data, &idx) == nil && idx.TargetIndex != nil {
		b.TargetIndex = *idx.TargetIndex
	}
	return nil
}

func (b *TargetBinding) UnmarshalYAML(node *yaml.Node) error {
	var p plainBinding
	err := node.Decode(&p)
	if err == nil {
		*b = TargetBinding(p)
		return nil
	}
	*b = TargetBinding{TargetIndex: -1, Invalid: err}
	var idx struct {
		TargetIndex *int `yaml:"targetIndex"`
	}
	if node.Decode(&idx) == nil && idx.TargetIndex != nil {
		b.TargetIndex = *idx.TargetIndex
	}
	return nil
}

// Properties holds the display and effect values of a binding. Every field is
// optional in the document; Width, Height and Opacity are required by the binder.
type Properties struct {
	Width             *float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height            *float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Opacity           *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	GlowIntensity     *float64 `json:"glowIntensity,omitempty" yaml:"glowIntensity,omitempty"`
	RGBShiftIntensity *float64 `json:"rgbShiftIntensity,omitempty" yaml:"rgbShiftIntensity,omitempty"`
	GlitchAmount      *float64 `json:"glitchAmount,omitempty" yaml:"glitchAmount,omitempty"`
}

// MissingDisplay lists the required display fields that are absent.
func (p Properties) MissingDisplay() []string {
	var missing []string
	if p.Width == nil {
		missing = append(missing, "width")
	}
	if p.Height == nil {
		missing = append(missing, "height")
	}
	if p.Opacity == nil {
		missing = append(missing, "opacity")
	}
	return missing
}

// Effect values with absent fields resolved to zero.
func (p Properties) Glow() float64     { return valueOr(p.GlowIntensity, 0) }
func (p Properties) RGBShift() float64 { return valueOr(p.RGBShiftIntensity, 0) }
func (p Properties) Glitch() float64   { return valueOr(p.GlitchAmount, 0) }

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Vec3 is a plain 3-component vector.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Transform places a model under its anchor. Rotation is expressed in degrees.
type Transform struct {
	Position Vec3  `json:"position" yaml:"position"`
	Rotation Vec3  `json:"rotation" yaml:"rotation"`
	Scale    *Vec3 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// Radians returns the rotation converted from degrees.
func (t Transform) Radians() Vec3 {
	return Vec3{
		X: t.Rotation.X * math.Pi / 180,
		Y: t.Rotation.Y * math.Pi / 180,
		Z: t.Rotation.Z * math.Pi / 180,
	}
}

// ScaleOrUnit returns the scale, defaulting to (1,1,1) when absent.
func (t Transform) ScaleOrUnit() Vec3 {
	if t.Scale == nil {
		return Vec3{X: 1, Y: 1, Z: 1}
	}
	return *t.Scale
}
