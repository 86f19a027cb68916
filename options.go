// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"io"

	"github.com/charmbracelet/log"
)

// Option configures a Pack, Builder or Resolver.
type Option func(*options)

type options struct {
	key       *Key
	logger    *log.Logger
	cacheSize int
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return o
}

// WithKey sets the payload key. Builders encrypt every file with it;
// packs use it to decrypt encrypted entries.
func WithKey(key Key) Option {
	return func(o *options) {
		k := key
		o.key = &k
	}
}

// WithSecret is WithKey(DeriveKey(secret)). An empty secret leaves
// encryption disabled.
func WithSecret(secret string) Option {
	return func(o *options) {
		if secret == "" {
			return
		}
		k := DeriveKey(secret)
		o.key = &k
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCacheSize enables a resolver cache holding up to n resolved files.
// Packs and builders ignore it.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}
