package platform

import (
	"runtime"
)

// NewPlatform selects the hook and window-query implementation for the
// OS this binary runs on.
func NewPlatform() (Platform, error) {
	switch runtime.GOOS {
	case "windows":
		return newWindowsPlatform()
	case "darwin":
		return newDarwinPlatform()
	case "linux":
		return newLinuxPlatform()
	default:
		return nil, &UnsupportedPlatformError{OS: runtime.GOOS}
	}
}

// UnsupportedPlatformError is returned when no implementation exists
// for the requested OS.
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	return "unsupported platform: " + e.OS
}
