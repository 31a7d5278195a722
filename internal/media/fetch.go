// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/media/fetch.go
// Summary: Opens catalog, target and media locations from disk or over HTTP.

package media

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher opens a media location for reading.
type Fetcher interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// DefaultFetcher serves http(s) URLs with an HTTP client and everything else
// from the local filesystem, relative to Root when the path is not absolute.
type DefaultFetcher struct {
	Root   string
	Client *http.Client
}

// NewFetcher returns a fetcher rooted at dir.
func NewFetcher(root string) *DefaultFetcher {
	return &DefaultFetcher{
		Root:   root,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *DefaultFetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("media: empty location")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.openHTTP(ctx, location)
	}
	p := strings.TrimPrefix(location, "file://")
	if !filepath.IsAbs(p) && f.Root != "" {
		p = filepath.Join(f.Root, p)
	}
	return os.Open(p)
}

func (f *DefaultFetcher) openHTTP(ctx context.Context, url string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("media: GET %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}

// FSFetcher serves locations from a filesystem such as the embedded demo bundle.
type FSFetcher struct {
	FS fs.FS
}

func (f FSFetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.FS.Open(strings.TrimPrefix(location, "/"))
}

// ReadAll opens a location and reads it fully.
func ReadAll(ctx context.Context, f Fetcher, location string) ([]byte, error) {
	rc, err := f.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
