// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: catalog/catalog.go
// Summary: Parses the experience catalog and resolves media paths.
// Usage: Loaded once at startup; the session manager and selector look experiences up here.
// Notes: Malformed experience entries are skipped, never fatal.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/framegrace/texelar/internal/media"
)

// Format selects the catalog document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor guesses the format from a file name or URL.
func FormatFor(location string) Format {
	ext := strings.ToLower(path.Ext(strings.SplitN(location, "?", 2)[0]))
	if ext == ".yaml" || ext == ".yml" {
		return FormatYAML
	}
	return FormatJSON
}

// Catalog is the in-memory, read-only view of all configured experiences.
type Catalog struct {
	basePath    string
	targetsFile string
	thumbsFile  string
	experiences []*Experience
	byFolder    map[string]*Experience
	skipped     []*ConfigurationError
}

// Load fetches and parses a catalog document.
func Load(ctx context.Context, fetcher media.Fetcher, location string) (*Catalog, error) {
	data, err := media.ReadAll(ctx, fetcher, location)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", location, err)
	}
	cat, err := Parse(data, FormatFor(location))
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", location, err)
	}
	return cat, nil
}

// Parse decodes a catalog document. Invalid experience entries are skipped and
// reported through Skipped.
func Parse(data []byte, format Format) (*Catalog, error) {
	var doc struct {
		BasePath    string            `json:"basePath" yaml:"basePath"`
		TargetsFile string            `json:"targetsFile" yaml:"targetsFile"`
		ThumbsFile  string            `json:"thumbsFile" yaml:"thumbsFile"`
		Experiences []json.RawMessage `json:"experiences" yaml:"-"`
		YAMLEntries []yaml.Node       `json:"-" yaml:"experiences"`
	}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if doc.YAMLEntries == nil {
			return nil, errors.New("document has no experiences list")
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		if doc.Experiences == nil {
			return nil, errors.New("document has no experiences list")
		}
	}
	if doc.TargetsFile == "" {
		return nil, errors.New("document has no targetsFile")
	}

	c := &Catalog{
		basePath:    doc.BasePath,
		targetsFile: doc.TargetsFile,
		thumbsFile:  doc.ThumbsFile,
		byFolder:    make(map[string]*Experience),
	}

	decode := func(i int) (*Experience, error) {
		exp := &Experience{}
		if format == FormatYAML {
			return exp, doc.YAMLEntries[i].Decode(exp)
		}
		return exp, json.Unmarshal(doc.Experiences[i], exp)
	}
	count := len(doc.Experiences)
	if format == FormatYAML {
		count = len(doc.YAMLEntries)
	}

	for i := 0; i < count; i++ {
		exp, err := decode(i)
		if err == nil {
			err = c.validate(exp)
		}
		if err != nil {
			cfgErr := &ConfigurationError{Index: i, Folder: exp.Folder, Err: err}
			log.Printf("Catalog: skipping experience: %v", cfgErr)
			c.skipped = append(c.skipped, cfgErr)
			continue
		}
		c.experiences = append(c.experiences, exp)
		c.byFolder[exp.Folder] = exp
	}
	return c, nil
}

func (c *Catalog) validate(exp *Experience) error {
	if strings.TrimSpace(exp.Folder) == "" {
		return errors.New("missing folder")
	}
	if _, dup := c.byFolder[exp.Folder]; dup {
		return fmt.Errorf("duplicate folder %q", exp.Folder)
	}
	if len(exp.Images) == 0 {
		return errors.New("no images")
	}
	if exp.Name == "" {
		exp.Name = exp.Folder
	}
	return nil
}

// Experiences returns the valid experiences in document order.
func (c *Catalog) Experiences() []*Experience {
	return append([]*Experience(nil), c.experiences...)
}

// Len returns the number of valid experiences.
func (c *Catalog) Len() int { return len(c.experiences) }

// At returns the experience at position i, or nil when out of range.
func (c *Catalog) At(i int) *Experience {
	if i < 0 || i >= len(c.experiences) {
		return nil
	}
	return c.experiences[i]
}

// Lookup finds an experience by folder.
func (c *Catalog) Lookup(folder string) (*Experience, bool) {
	exp, ok := c.byFolder[folder]
	return exp, ok
}

// Labels returns the experience folders in order. It is the default class table
// of the classifier selector.
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.experiences))
	for _, exp := range c.experiences {
		labels = append(labels, exp.Folder)
	}
	return labels
}

// Skipped returns the configuration errors of entries left out of the catalog.
func (c *Catalog) Skipped() []*ConfigurationError {
	return append([]*ConfigurationError(nil), c.skipped...)
}

// MediaPath resolves a file relative to an experience folder.
func (c *Catalog) MediaPath(exp *Experience, rel string) string {
	if rel == "" {
		return ""
	}
	return c.basePath + exp.Folder + "/" + rel
}

// TargetSource returns the tracking-target bundle of an experience.
func (c *Catalog) TargetSource(exp *Experience) string {
	return c.MediaPath(exp, c.targetsFile)
}

// Thumbnail returns the thumbnail image of an experience, or "" when the
// catalog declares none.
func (c *Catalog) Thumbnail(exp *Experience) string {
	return c.MediaPath(exp, c.thumbsFile)
}
