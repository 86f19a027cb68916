// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package lpack provides pure Go support for building, reading and layering
LPACK asset packs.

A pack is a single file holding a manifest, a file index and the stored
payload of every file. Packs are meant to be stacked: a base game pack,
a translation pack and a mod pack can all provide "ui/title.txt", and a
[Resolver] serves the copy from the pack with the highest priority.

# Basic Usage

Building a pack from a directory:

	manifest := lpack.Manifest{Name: "base", Type: lpack.PackBase}
	err := lpack.Build(manifest, "assets", "base.lpack")
	if err != nil {
		log.Fatal(err)
	}

Reading a pack:

	pack, err := lpack.Open("base.lpack")
	if err != nil {
		log.Fatal(err)
	}
	defer pack.Close()

	data, err := pack.ReadFile("ui/title.txt")

Layering packs:

	resolver, _ := lpack.NewResolver()
	defer resolver.Close()

	resolver.AddPack(base)
	resolver.AddPack(mod) // priority 10 beats base's 0

	data, ok := resolver.Resolve("ui/title.txt")

# File Format

All integers are little-endian.

	"LPACK"                 5 bytes magic
	version                 uint32 (1)
	manifest length N       uint32
	manifest                N bytes JSON
	index offset            uint64
	index length            uint32
	data region             payloads back to back
	index                   JSON array of FileEntry

The builder writes the index pointer as zeros, streams every payload,
appends the index and then backpatches the pointer. A pack whose pointer
is still zero is rejected as corrupt.

# Codecs

Each payload is compressed with zstd, LZ4 or stored as is; the choice is
made at build time from the pack type and file extension (see
[SelectCompression]) and kept only when it makes the file smaller. When a
key is configured with [WithKey] or [WithSecret], the compressed payload
is then sealed with AES-256-GCM under a fresh 12-byte nonce. Readers
decode any combination regardless of the pack type.

The key is derived from a secret supplied at runtime; packs carry no key
material. Anyone who can run a program holding the secret can read the
packs it reads, so this protects assets at rest, not from the host.

# Path Conventions

Virtual paths use forward slashes and are case-sensitive. Lookups convert
backslashes to forward slashes.
*/
package lpack
