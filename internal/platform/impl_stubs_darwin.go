//go:build darwin
// +build darwin

package platform

// Constructors for the other OSes so the factory switch links on
// darwin builds; they can never be selected here.
func newWindowsPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "windows (building for darwin)"}
}

func newLinuxPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "linux (building for darwin)"}
}
