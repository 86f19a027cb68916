// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Command lpack builds, inspects and layers LPACK asset packs.
package main

import "github.com/suprsokr/go-lpack/internal/cli"

func main() {
	cli.Execute()
}
