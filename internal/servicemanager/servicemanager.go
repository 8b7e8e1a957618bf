// Package servicemanager installs and controls skillsd as a user service
// under launchd on macOS and systemd on Linux.
package servicemanager

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// BinaryName is the executable name looked up when the running binary cannot be resolved.
const BinaryName = "skillsd"

// Platform represents an operating system platform.
type Platform string

const (
	// PlatformLinux represents Linux.
	PlatformLinux Platform = "linux"
	// PlatformMacOS represents macOS.
	PlatformMacOS Platform = "darwin"
	// PlatformWindows represents Windows.
	PlatformWindows Platform = "windows"
	// PlatformUnknown represents an unknown platform.
	PlatformUnknown Platform = "unknown"
)

// String returns the platform as a string.
func (p Platform) String() string {
	return string(p)
}

// DetectPlatform returns the current platform.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// IsPlatformSupported reports whether p has a service manager implementation.
func IsPlatformSupported(p Platform) bool {
	return p == PlatformLinux || p == PlatformMacOS
}

// GetBinaryPath returns the path to the skillsd binary.
// It checks in order: the current executable, ~/.local/bin/skillsd, PATH.
func GetBinaryPath() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}

	if home, err := os.UserHomeDir(); err == nil {
		localBin := filepath.Join(home, ".local", "bin", BinaryName)
		if _, err := os.Stat(localBin); err == nil {
			return localBin
		}
	}

	if path, err := exec.LookPath(BinaryName); err == nil {
		return path
	}

	return BinaryName
}
