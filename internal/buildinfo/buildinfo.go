// Package buildinfo exposes build-time metadata and runtime logging toggles.
//
// version/stage/gitCommit are injected via -ldflags at build time. The
// quiet/debug/verbose toggles hold build-time defaults that CLI flags may
// override at runtime.
package buildinfo

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	defaultUndefined  = "(undefined)"
	defaultLocalBuild = "(local)"
	mainBranch        = "main"

	// Name used for directory naming and log group scoping.
	Name = "chariot"
)

var (
	version   = ""
	stage     = ""
	gitCommit = ""

	rawQuiet   = "false"
	rawDebug   = "false"
	rawVerbose = "false"
)

var (
	quietMode   atomic.Bool
	debugMode   atomic.Bool
	verboseMode atomic.Bool
)

func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawVerbose); err == nil {
		verboseMode.Store(v)
	}
}

func SetQuiet(enabled bool)   { quietMode.Store(enabled) }
func IsQuiet() bool           { return quietMode.Load() }
func SetDebug(enabled bool)   { debugMode.Store(enabled) }
func IsDebug() bool           { return debugMode.Load() }
func SetVerbose(enabled bool) { verboseMode.Store(enabled) }
func IsVerbose() bool         { return verboseMode.Load() }

// Returns the current version with any "v"/"V" prefix stripped, or
// "(undefined)" if unset.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return defaultUndefined
	}
	v = strings.ToLower(v)
	return strings.TrimPrefix(v, "v")
}

// Returns the development stage (e.g. the git branch used for the build).
func Stage() string {
	s := strings.TrimSpace(stage)
	if s == "" {
		return defaultUndefined
	}
	return strings.ToLower(s)
}

// Returns the git commit hash the build was produced from.
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Returns the build architecture.
func Arch() string {
	return runtime.GOARCH
}

// Returns true when version, commit, or stage were not set via -ldflags.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns a detailed "<version>+<stage> <commit> [<arch>]" string, or
// "(local)" for unstamped builds.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	s := Stage()
	if s == mainBranch {
		s = ""
	} else {
		s = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), s, GitCommit(), Arch())
}
