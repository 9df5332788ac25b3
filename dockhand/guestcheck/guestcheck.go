// Package guestcheck identifies the environment the guest pipeline runs in.
package guestcheck

import (
	"os"
	"strings"
)

// Generation classifies the virtualization environment.
type Generation int

const (
	NotWSL Generation = iota
	WSL1
	WSL2
)

func (g Generation) String() string {
	switch g {
	case WSL1:
		return "WSL1"
	case WSL2:
		return "WSL2"
	default:
		return "not WSL"
	}
}

// DefaultInteropPath is the binfmt handler WSL registers for launching
// Windows binaries from inside the guest.
const DefaultInteropPath = "/proc/sys/fs/binfmt_misc/WSLInterop"

// Classify maps a kernel release string to a WSL generation. Current WSL2
// kernels carry a "-microsoft-standard-WSL2" suffix; the ones shipped with
// Windows 10 2004 stop at "-microsoft-standard". WSL1 reports the emulated
// "-Microsoft" kernel.
func Classify(release string) Generation {
	lower := strings.ToLower(release)
	switch {
	case strings.Contains(lower, "wsl2"):
		return WSL2
	case strings.Contains(lower, "microsoft-standard"):
		return WSL2
	case strings.Contains(lower, "microsoft"):
		return WSL1
	default:
		return NotWSL
	}
}

// classifyAt falls back to the interop registration for releases that carry
// no WSL marker at all. Custom kernels (set via .wslconfig) report whatever
// their builder named them, and only WSL2 can run one, so the registration
// settles what the release string cannot.
func classifyAt(release, interopPath string) Generation {
	if gen := Classify(release); gen != NotWSL {
		return gen
	}
	if _, err := os.Stat(interopPath); err == nil {
		return WSL2
	}
	return NotWSL
}

// Detect reads the running kernel's release string and classifies it,
// consulting the interop registration when the release alone is
// inconclusive.
func Detect() (Generation, string, error) {
	release, err := kernelRelease()
	if err != nil {
		return NotWSL, "", err
	}
	return classifyAt(release, DefaultInteropPath), release, nil
}

// IsRoot reports whether the process runs with root privileges.
func IsRoot() bool {
	return os.Geteuid() == 0
}
