// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"math"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/texelar/internal/media"
)

const sampleJSON = `{
  "basePath": "/media/",
  "targetsFile": "targets.json",
  "thumbsFile": "thumb.png",
  "experiences": [
    {"folder": "poster", "name": "Poster", "images": [
      {"targetIndex": 0, "video": "intro.mp4",
       "properties": {"width": 16, "height": 9, "opacity": 0.9, "rgbShiftIntensity": 0.01}}
    ]},
    {"name": "no folder", "images": [{"targetIndex": 0}]},
    {"folder": "empty", "images": []},
    {"folder": "poster", "images": [{"targetIndex": 1}]},
    {"folder": "statue", "images": [
      {"targetIndex": 0, "glbModel": "statue.glb",
       "transform": {"position": {"x": 0, "y": 0.1, "z": 0}, "rotation": {"x": 90, "y": 0, "z": 0}},
       "properties": {"width": 1, "height": 1, "opacity": 1}}
    ]},
    "not even an object"
  ]
}`

func TestParseSkipsMalformedEntries(t *testing.T) {
	cat, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	require.Equal(t, 2, cat.Len())
	assert.Equal(t, []string{"poster", "statue"}, cat.Labels())
	assert.Equal(t, "Poster", cat.At(0).Name)
	assert.Equal(t, "statue", cat.At(1).Name, "name defaults to folder")
	assert.Nil(t, cat.At(5))

	skipped := cat.Skipped()
	require.Len(t, skipped, 4)
	idx := make([]int, 0, len(skipped))
	for _, s := range skipped {
		idx = append(idx, s.Index)
	}
	assert.Equal(t, []int{1, 2, 3, 5}, idx)
}

func TestParseRejectsUnusableDocuments(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":       `{`,
		"no experiences": `{"targetsFile": "t.json"}`,
		"no targets":     `{"experiences": []}`,
	} {
		_, err := Parse([]byte(doc), FormatJSON)
		assert.Error(t, err, name)
	}
}

func TestPathResolution(t *testing.T) {
	cat, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	exp, ok := cat.Lookup("poster")
	require.True(t, ok)

	assert.Equal(t, "/media/poster/intro.mp4", cat.MediaPath(exp, "intro.mp4"))
	assert.Equal(t, "/media/poster/targets.json", cat.TargetSource(exp))
	assert.Equal(t, "/media/poster/thumb.png", cat.Thumbnail(exp))
	assert.Equal(t, "", cat.MediaPath(exp, ""))
}

func TestParseYAML(t *testing.T) {
	doc := `
basePath: assets/
targetsFile: targets.mind
experiences:
  - folder: gallery
    images:
      - targetIndex: 2
        video: loop.mp4
        properties: {width: 4, height: 3, opacity: 1, glitchAmount: 0.2}
  - images: []
`
	cat, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())
	exp := cat.At(0)
	require.Len(t, exp.Images, 1)
	b := exp.Images[0]
	assert.Equal(t, 2, b.TargetIndex)
	assert.Equal(t, 0.2, b.Properties.Glitch())
	assert.Equal(t, 0.0, b.Properties.Glow())
	assert.Empty(t, b.Properties.MissingDisplay())
	assert.Len(t, cat.Skipped(), 1)
}

func TestMistypedBindingKeepsSiblings(t *testing.T) {
	cat, err := Parse([]byte(`{"targetsFile":"t.json","experiences":[
		{"folder":"a","images":[
			{"targetIndex":0,"properties":{"width":"wide","height":1,"opacity":1}},
			{"targetIndex":1,"video":"b.mp4","properties":{"width":2,"height":1,"opacity":1}},
			7
		]}]}`), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())
	assert.Empty(t, cat.Skipped())

	images := cat.At(0).Images
	require.Len(t, images, 3)
	assert.Error(t, images[0].Invalid)
	assert.Equal(t, 0, images[0].TargetIndex)
	assert.NoError(t, images[1].Invalid)
	assert.Equal(t, "b.mp4", images[1].Video)
	assert.Error(t, images[2].Invalid)
	assert.Equal(t, -1, images[2].TargetIndex)

	doc := `
targetsFile: t.json
experiences:
  - folder: a
    images:
      - targetIndex: 3
        properties: {width: [1], height: 1, opacity: 1}
      - targetIndex: 4
        properties: {width: 1, height: 1, opacity: 1}
`
	cat, err = Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())
	images = cat.At(0).Images
	require.Len(t, images, 2)
	assert.Error(t, images[0].Invalid)
	assert.Equal(t, 3, images[0].TargetIndex)
	assert.NoError(t, images[1].Invalid)
}

func TestTransformRadians(t *testing.T) {
	cat, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	exp, _ := cat.Lookup("statue")
	tr := exp.Images[0].Transform
	require.NotNil(t, tr)

	rad := tr.Radians()
	assert.InDelta(t, math.Pi/2, rad.X, 1e-12)
	assert.Equal(t, 0.0, rad.Y)
	assert.Equal(t, Vec3{X: 1, Y: 1, Z: 1}, tr.ScaleOrUnit())
}

func TestMissingDisplayLists(t *testing.T) {
	one := 1.0
	p := Properties{Opacity: &one}
	assert.Equal(t, []string{"width", "height"}, p.MissingDisplay())
}

func TestLoadUsesFormatFromExtension(t *testing.T) {
	fsys := fstest.MapFS{
		"catalog.yml": {Data: []byte("targetsFile: t.json\nexperiences:\n  - folder: a\n    images: [{targetIndex: 0}]\n")},
	}
	cat, err := Load(context.Background(), media.FSFetcher{FS: fsys}, "catalog.yml")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cat.Labels())

	_, err = Load(context.Background(), media.FSFetcher{FS: fsys}, "missing.json")
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatFor("https://x/cat.YAML?v=2"))
	assert.Equal(t, FormatJSON, FormatFor("cat.json"))
}
