//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package catalog

// This file is compiled when building without CGO or with the purego
// tag, selecting the pure-Go SQLite driver.
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite"
	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
