// Package version holds build information set at link time with
//
//	-ldflags "-X github.com/xi784/ha-blnet/internal/version.Version=..."
package version

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// String returns a one-line description of the build.
func String() string {
	commit := Commit
	if commit == "" {
		commit = vcsRevision()
	}
	if commit == "" {
		commit = "unknown"
	}

	s := fmt.Sprintf("%s (commit %s, %s)", Version, commit, runtime.Version())
	if BuildDate != "" {
		s += ", built " + BuildDate
	}
	return s
}

// Fprint writes the build description to w.
func Fprint(w io.Writer) {
	fmt.Fprintf(w, "version %s\n", String())
}

// ShowVersion prints the build description to stdout.
func ShowVersion() {
	Fprint(os.Stdout)
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}
