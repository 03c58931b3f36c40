// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/kailas-cloud/platepick/internal/version.Version=v1.2.0"
package version

import (
	"fmt"
	"runtime"
)

//nolint:gochecknoglobals // overwritten by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String is the one-line build description printed by `platepick version`.
func String() string {
	return fmt.Sprintf("platepick %s (commit %s, built %s, %s %s/%s)",
		Version, shortCommit(), Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func shortCommit() string {
	if len(Commit) > 12 {
		return Commit[:12]
	}
	return Commit
}
