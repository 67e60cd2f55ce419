// Package version holds build information injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/Sumatoshi-tech/tripstat/pkg/version.Version=v1.2.0"
package version

import (
	"fmt"
	"runtime"
)

// Build information. Overridden at link time.
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// String returns a one-line description of the running binary.
func String() string {
	return fmt.Sprintf("tripstat %s (commit %s, built %s, %s)", Version, Commit, Date, runtime.Version())
}
