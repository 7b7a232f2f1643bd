//go:build linux
// +build linux

package platform

import (
	"fmt"
	"os"
	"runtime"
)

// Global input hooks and foreground-window queries are not implemented
// for Linux yet; the factory refuses to start rather than track nothing.
type linuxImpl struct{}

func newLinuxPlatform() (Platform, error) {
	return nil, fmt.Errorf("Linux implementation not yet available")
}

func (p *linuxImpl) InstallHooks(callback func(InputEvent)) error {
	return fmt.Errorf("not implemented")
}

func (p *linuxImpl) UninstallHooks() error {
	return nil
}

func (p *linuxImpl) GetActiveWindow() (*WindowInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *linuxImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:       "linux",
		Arch:     runtime.GOARCH,
		Hostname: hostname,
	}, nil
}
