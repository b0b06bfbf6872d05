// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Bifil - Synchronous Serial Link Tool
//
// A CLI tool for exercising, monitoring and bridging Bifil two-wire
// synchronous serial links.

package main

import (
	"os"

	"github.com/Thermoquad/bifil/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
