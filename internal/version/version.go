// Package version provides version information for the builder.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time variables set via ldflags.
var (
	// Version is the builder version (set via ldflags).
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// cueModulePath is the module whose version is reported as the schema engine.
const cueModulePath = "cuelang.org/go"

// Info contains version information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`

	// CUESDKVersion is the CUE SDK that validates builder.yaml.
	CUESDKVersion string `json:"cueSDKVersion"`
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Version:       Version,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
		GoVersion:     runtime.Version(),
		CUESDKVersion: cueSDKVersion(),
	}
}

// String returns a human-readable version string.
func (i Info) String() string {
	return fmt.Sprintf("builder:\n  Version:  %s\n  Build ID: %s/%s\n  Go:       %s\n\nCUE:\n  SDK Version: %s",
		i.Version, i.BuildDate, i.GitCommit, i.GoVersion, i.CUESDKVersion)
}

func cueSDKVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range bi.Deps {
		if dep.Path == cueModulePath {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return "unknown"
}
