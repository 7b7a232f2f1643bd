//go:build !windows && !darwin && !linux
// +build !windows,!darwin,!linux

package platform

// Fallback constructors for GOOS values with no native implementation,
// so the factory links everywhere.
func newWindowsPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "windows (not compiled for this platform)"}
}

func newDarwinPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "darwin (not compiled for this platform)"}
}

func newLinuxPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "linux (not compiled for this platform)"}
}
