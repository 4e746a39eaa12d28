// Package system reports the identity of the host a maintenance run
// executes on, for use in notification and journal headers.
package system

import (
	"os"

	"golang.org/x/sys/unix"
)

// HostInfo identifies the machine a maintenance run executed on.
type HostInfo struct {
	Hostname string
	Kernel   string
}

// Info collects the host identity. Lookup failures degrade to "unknown"
// values; identity is reporting detail and must never fail a run.
func Info() HostInfo {
	info := HostInfo{Hostname: "unknown", Kernel: "unknown"}

	if name, err := os.Hostname(); err == nil && name != "" {
		info.Hostname = name
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		if release := unix.ByteSliceToString(uts.Release[:]); release != "" {
			info.Kernel = release
		}
	}

	return info
}
