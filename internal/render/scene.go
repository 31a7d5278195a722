// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/render/scene.go
// Summary: Minimal scene graph: anchor groups holding video planes and model nodes.
// Usage: Tracking engines own the scene; the binder attaches visuals to anchor groups.
// Notes: All types are safe for concurrent use by the engine, binder and render loop.

package render

import (
	"image"
	"sync"

	"github.com/framegrace/texelar/internal/media"
)

// Vec3 is a 3-component vector used for node transforms.
type Vec3 struct{ X, Y, Z float64 }

// Node is anything that can be attached to a group.
type Node interface {
	node()
}

// Plane is a textured quad showing a video.
type Plane struct {
	Width   float64
	Height  float64
	Opacity float64
	Video   *media.Video
}

func (*Plane) node() {}

// ModelNode places a loaded model under an anchor. Rotation is in radians.
type ModelNode struct {
	Model    *media.Model
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

func (*ModelNode) node() {}

// Group is the content attachment point of one anchor.
type Group struct {
	mu      sync.RWMutex
	nodes   []Node
	visible bool
	center  [2]float64 // normalised screen position
	extent  float64    // fraction of the frame width covered by a unit plane
}

// NewGroup returns an empty, hidden group centred on screen.
func NewGroup() *Group {
	return &Group{center: [2]float64{0.5, 0.5}, extent: 0.4}
}

// Add attaches a node.
func (g *Group) Add(n Node) {
	g.mu.Lock()
	g.nodes = append(g.nodes, n)
	g.mu.Unlock()
}

// Remove detaches a node if present.
func (g *Group) Remove(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.nodes {
		if existing == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return
		}
	}
}

// Nodes returns a snapshot of attached nodes.
func (g *Group) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Node(nil), g.nodes...)
}

// Clear detaches all nodes.
func (g *Group) Clear() {
	g.mu.Lock()
	g.nodes = nil
	g.mu.Unlock()
}

// SetVisible is driven by the tracking engine on found/lost.
func (g *Group) SetVisible(v bool) {
	g.mu.Lock()
	g.visible = v
	g.mu.Unlock()
}

// Visible reports whether the anchor is currently tracked.
func (g *Group) Visible() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.visible
}

// SetPose places the group on screen.
func (g *Group) SetPose(cx, cy, extent float64) {
	g.mu.Lock()
	g.center = [2]float64{cx, cy}
	g.extent = extent
	g.mu.Unlock()
}

// Pose returns the screen placement.
func (g *Group) Pose() (cx, cy, extent float64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.center[0], g.center[1], g.extent
}

// Scene is the set of anchor groups rendered each frame.
type Scene struct {
	mu     sync.RWMutex
	groups []*Group
}

// NewScene returns an empty scene.
func NewScene() *Scene { return &Scene{} }

// AddGroup registers a group.
func (s *Scene) AddGroup(g *Group) {
	s.mu.Lock()
	s.groups = append(s.groups, g)
	s.mu.Unlock()
}

// Groups returns a snapshot of the registered groups.
func (s *Scene) Groups() []*Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Group(nil), s.groups...)
}

// Clear drops every group and its nodes.
func (s *Scene) Clear() {
	s.mu.Lock()
	for _, g := range s.groups {
		g.Clear()
	}
	s.groups = nil
	s.mu.Unlock()
}

// Camera holds the latest camera frame used as the scene background.
type Camera struct {
	mu    sync.RWMutex
	frame image.Image
}

// SetFrame stores the latest captured frame.
func (c *Camera) SetFrame(img image.Image) {
	c.mu.Lock()
	c.frame = img
	c.mu.Unlock()
}

// Frame returns the latest frame or nil.
func (c *Camera) Frame() image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame
}
