// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command headwind is a header compiler for Java sources: it emits
// class files whose signatures, constants, and annotations are
// complete while every method body is a stub, so downstream targets
// can compile against headers without waiting for full compilation.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes follow the compiler convention: 0 success, 1 compilation
// errors, 2 invocation errors.
const (
	exitOK    = 0
	exitDiags = 1
	exitUsage = 2
)

// errCompilation marks a run that produced diagnostics; the command
// has already rendered them.
var errCompilation = errors.New("compilation failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errCompilation) {
			os.Exit(exitDiags)
		}
		fmt.Fprintln(os.Stderr, "headwind:", err)
		os.Exit(exitUsage)
	}
	os.Exit(exitOK)
}
