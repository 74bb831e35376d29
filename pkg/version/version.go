// Copyright 2024 The Mali GPU Governor Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version tags built binaries with release metadata, injected at
// link time:
//
//	LDFLAGS=-ldflags \
//	  "-X=github.com/Tools-cx-app/mali-gpu-governor/pkg/version.Version=<version> \
//	   -X=github.com/Tools-cx-app/mali-gpu-governor/pkg/version.Build=<build-id>"
//
// The governor logs this on startup so device logs pinned to a bug report
// identify the exact build that was flashed.
package version

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Default values of variables we'll override with the linker.
var (
	// Version is our version as given by 'git describe'.
	Version = "unknown"
	// Build is the SHA1 of the repository we've been built from.
	Build = "unknown"
)

// String returns the one-line version identification the daemon logs on
// startup.
func String() string {
	return fmt.Sprintf("mali-gpu-governor %s (build %s)", Version, Build)
}

// PrintVersionInfo prints version information about this binary.
func PrintVersionInfo() {
	fmt.Printf("%s version information:\n", filepath.Base(os.Args[0]))
	fmt.Printf("  - version: %s\n", Version)
	fmt.Printf("  - build:   %s\n", Build)
}

// Dummy struct used to hook into flag.Value.Set of -version during commandline parsing.
type version struct{}

// IsBoolFlag tell flag that we only have optional arguments.
func (version) IsBoolFlag() bool {
	return true
}

// Set is our dummy flag.Value setter.
func (version) Set(value string) error {
	print, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if print {
		PrintVersionInfo()
		os.Exit(0)
	}

	return nil
}

// String is our dummy flag.Value stringification function.
func (*version) String() string {
	return "false"
}

// Put in place a '--version' command line option for us.
func init() {
	flag.Var(&version{}, "version", "Print version information about "+filepath.Base(os.Args[0]))
}
