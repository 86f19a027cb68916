// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/golang-lru/arc/v2"
)

// Resolver overlays packs by priority. The pack with the highest manifest
// priority that contains a path provides it; packs with equal priority
// keep the order in which they were added.
//
// A Resolver owns the packs added to it and closes them on Close. It is
// safe for concurrent use.
type Resolver struct {
	mu     sync.RWMutex
	packs  []*Pack // sorted by descending priority, stable
	cache  *arc.ARCCache[string, []byte]
	opts   []Option // applied to packs loaded by AddDir
	logger *log.Logger
}

// NewResolver returns an empty resolver.
func NewResolver(opts ...Option) (*Resolver, error) {
	o := newOptions(opts)

	r := &Resolver{
		opts:   opts,
		logger: o.logger,
	}
	if o.cacheSize > 0 {
		cache, err := arc.NewARC[string, []byte](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create resolver cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// AddPack adds a pack and re-sorts the layers.
func (r *Resolver) AddPack(p *Pack) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.packs = append(r.packs, p)
	slices.SortStableFunc(r.packs, func(a, b *Pack) int {
		// descending
		switch {
		case a.manifest.Priority > b.manifest.Priority:
			return -1
		case a.manifest.Priority < b.manifest.Priority:
			return 1
		}
		return 0
	})

	if r.cache != nil {
		r.cache.Purge()
	}
}

// AddDir opens every *.lpack and *.pack file directly inside dir, in name
// order. Packs that fail to load are skipped and their errors joined into
// the returned error; the packs that did load are kept.
func (r *Resolver) AddDir(dir string) error {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return ioError("read pack directory", dir, err)
	}

	var errs []error
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if ext != Extension && ext != ".pack" {
			continue
		}

		path := filepath.Join(dir, de.Name())
		pack, err := Open(path, r.opts...)
		if err != nil {
			r.logger.Warn("skipping pack", "path", path, "err", err)
			errs = append(errs, err)
			continue
		}
		r.AddPack(pack)
	}
	return errors.Join(errs...)
}

// Len returns the number of layers.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.packs)
}

// Packs returns the layers in resolution order.
func (r *Resolver) Packs() []*Pack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.packs)
}

// Layers describes every pack that contains path, highest priority first,
// as "name (Priority: n)".
func (r *Resolver) Layers(virtualPath string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var layers []string
	for _, p := range r.packs {
		if p.Has(virtualPath) {
			layers = append(layers, fmt.Sprintf("%s (Priority: %d)", p.manifest.Name, p.manifest.Priority))
		}
	}
	return layers
}

// Lookup returns the pack that provides path, without reading it.
func (r *Resolver) Lookup(virtualPath string) (*Pack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(virtualPath)
}

func (r *Resolver) lookupLocked(virtualPath string) (*Pack, bool) {
	for _, p := range r.packs {
		if p.Has(virtualPath) {
			return p, true
		}
	}
	return nil, false
}

// Resolve returns the content of path from the highest-priority pack that
// contains it. Shadowing is strict: if that pack fails to decode the file,
// Resolve reports no result instead of falling back to a lower layer.
func (r *Resolver) Resolve(virtualPath string) ([]byte, bool) {
	virtualPath = normalizePath(virtualPath)

	// Held across the read so AddPack cannot purge the cache in between.
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.cache != nil {
		if data, ok := r.cache.Get(virtualPath); ok {
			return bytes.Clone(data), true
		}
	}

	p, ok := r.lookupLocked(virtualPath)
	if !ok {
		return nil, false
	}

	data, err := p.ReadFile(virtualPath)
	if err != nil {
		r.logger.Warn("top layer failed to decode", "path", virtualPath, "pack", p.manifest.Name, "err", err)
		return nil, false
	}

	if r.cache != nil {
		r.cache.Add(virtualPath, bytes.Clone(data))
	}
	return data, true
}

// Files returns the union of all paths across layers, sorted.
func (r *Resolver) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var files []string
	for _, p := range r.packs {
		for path := range p.entries {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			files = append(files, path)
		}
	}
	slices.Sort(files)
	return files
}

// Close closes every pack and empties the resolver.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.packs {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.packs = nil
	if r.cache != nil {
		r.cache.Purge()
	}
	return errors.Join(errs...)
}
