package platform

import (
	"os"
	"runtime"
	"strings"
	"sync"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL1    Platform = "wsl1"
	PlatformWSL2    Platform = "wsl2"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

var (
	detectOnce sync.Once
	detected   Platform
)

// Detect returns the current platform, caching the result
func Detect() Platform {
	detectOnce.Do(func() {
		procVersion, _ := os.ReadFile("/proc/version")
		detected = classify(runtime.GOOS, string(procVersion), os.Getenv, exists)
	})
	return detected
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// classify maps the OS, the kernel version string and a few marker files to
// a Platform. WSL reports itself as linux and is told apart by /proc/version.
func classify(goos, procVersion string, getenv func(string) string, exists func(string) bool) Platform {
	switch goos {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
	default:
		return PlatformUnknown
	}

	wsl := getenv("WSL_DISTRO_NAME") != "" ||
		strings.Contains(strings.ToLower(procVersion), "microsoft")
	if !wsl {
		return PlatformLinux
	}

	// WSL2 kernels are "microsoft-standard"; WSL1 reports "Microsoft".
	switch {
	case strings.Contains(procVersion, "microsoft-standard"):
		return PlatformWSL2
	case strings.Contains(procVersion, "Microsoft"):
		return PlatformWSL1
	case exists("/run/WSL"), exists("/dev/vsock"):
		return PlatformWSL2
	default:
		return PlatformWSL1
	}
}

// InTmux reports whether this process itself runs inside a tmux client.
func InTmux() bool {
	return os.Getenv("TMUX") != ""
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL1:
		return "WSL1"
	case PlatformWSL2:
		return "WSL2"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}
