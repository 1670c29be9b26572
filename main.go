// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/sgnsilv/festmap/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
