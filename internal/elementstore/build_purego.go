//go:build purego || !sqlite_cgo
// +build purego !sqlite_cgo

package elementstore

// This file is compiled when building without CGO or with the purego tag.
// The pure Go driver needs no C compiler and cross-compiles cleanly;
// the cgo driver is faster on large catalogs.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
