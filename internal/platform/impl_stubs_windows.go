//go:build windows
// +build windows

package platform

// Constructors for the other OSes so the factory switch links on
// windows builds; they can never be selected here.
func newDarwinPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "darwin (building for windows)"}
}

func newLinuxPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "linux (building for windows)"}
}
