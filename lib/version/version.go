// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries the client library version that registration
// reports to the backend, plus build metadata for --version output.
//
// Build metadata is injected via -ldflags, for example:
//
//	go build -ldflags "-X github.com/riglink-foundation/riglink/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

// The protocol-visible client version, sent in the core/register
// request. The major number participates in compatibility decisions on
// the backend side; minor and patch are informational.
const (
	Major = 1
	Minor = 0
	Patch = 0
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// String returns the semantic client version.
func String() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}

// Info returns a formatted version string for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s, %s)", String(), GitCommit, BuildTime, runtime.Version())
}
