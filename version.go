package ofetch

import (
	"fmt"
	"runtime"
)

// Overridable at build time via -ldflags "-X ...".
var (
	version = "v1.0.0"
	commit  = "unknown"
	date    = "unknown"
)

// Info describes the build of the library.
type Info struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
}

// VersionInfo returns the build metadata.
func VersionInfo() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("ofetch %s (commit %s, built %s, %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion)
}
