//go:build linux
// +build linux

package platform

// Constructors for the other OSes so the factory switch links on
// linux builds; they can never be selected here.
func newWindowsPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "windows (building for linux)"}
}

func newDarwinPlatform() (Platform, error) {
	return nil, &UnsupportedPlatformError{OS: "darwin (building for linux)"}
}
