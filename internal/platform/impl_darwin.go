//go:build darwin
// +build darwin

package platform

import (
	"fmt"
	"os"
	"runtime"
)

// macOS event taps require accessibility permissions and a CGEventTap
// integration that has not been written yet.
type darwinImpl struct{}

func newDarwinPlatform() (Platform, error) {
	return nil, fmt.Errorf("macOS implementation not yet available")
}

func (p *darwinImpl) InstallHooks(callback func(InputEvent)) error {
	return fmt.Errorf("not implemented")
}

func (p *darwinImpl) UninstallHooks() error {
	return nil
}

func (p *darwinImpl) GetActiveWindow() (*WindowInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *darwinImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:       "darwin",
		Arch:     runtime.GOARCH,
		Hostname: hostname,
	}, nil
}
