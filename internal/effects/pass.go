// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/effects/pass.go
// Summary: Pass interface and the render pass that feeds the chain.

package effects

import (
	"image"

	"github.com/framegrace/texelar/internal/render"
)

// Pass is one stage of the post-processing chain. It receives the output of the
// previous pass (nil for the first) and may modify it in place.
type Pass interface {
	ID() string
	Process(in *image.RGBA, u Values) (*image.RGBA, error)
}

// RenderPass renders the scene through the session's rendering context.
type RenderPass struct {
	ctx    render.Context
	scene  *render.Scene
	camera *render.Camera
}

// NewRenderPass binds a scene and camera to a rendering context.
func NewRenderPass(ctx render.Context, scene *render.Scene, camera *render.Camera) *RenderPass {
	return &RenderPass{ctx: ctx, scene: scene, camera: camera}
}

func (p *RenderPass) ID() string { return "render" }

func (p *RenderPass) Process(_ *image.RGBA, _ Values) (*image.RGBA, error) {
	return p.ctx.Render(p.scene, p.camera)
}
