package platform

import (
	"fmt"
	"time"
)

// Platform defines the interface for platform-specific operations
type Platform interface {
	// InstallHooks registers the system-wide keyboard and mouse hooks and
	// starts the dedicated message pump thread. The callback is invoked
	// from the pump thread and must not block. Installation is
	// all-or-nothing: if either hook fails to register, neither remains
	// installed and a *HookInstallError is returned.
	InstallHooks(callback func(InputEvent)) error

	// UninstallHooks removes both hooks and stops the pump thread.
	// It is idempotent and safe to call after a failed InstallHooks.
	UninstallHooks() error

	// GetActiveWindow returns the application owning the focused
	// top-level window.
	GetActiveWindow() (*WindowInfo, error)

	// GetSystemInfo returns basic host information for startup logging.
	GetSystemInfo() (*SystemInfo, error)
}

// EventKind classifies a normalized input event
type EventKind string

const (
	EventKey        EventKind = "key"
	EventButtonDown EventKind = "button_down"
	EventScroll     EventKind = "scroll"
	EventMouseMove  EventKind = "mouse_move"
)

// InputEvent is a normalized low-level input event. Events are counted
// only; no typed text or click targets are reconstructed.
type InputEvent struct {
	Kind    EventKind
	KeyCode uint32
	X       int32
	Y       int32
	// Wheel is the raw scroll delta (positive away from the user);
	// one full detent is 120.
	Wheel int32
	// Injected is set when the OS marks the event as synthesized by
	// software rather than physical hardware.
	Injected  bool
	Timestamp time.Time
}

// WindowInfo identifies the current foreground application
type WindowInfo struct {
	Title       string
	Application string
	ProcessID   int
	Timestamp   time.Time
}

// SystemInfo contains system information
type SystemInfo struct {
	OS       string
	Arch     string
	Hostname string
}

// HookInstallError reports a failed hook registration. The tracker must
// remain inert when this is returned.
type HookInstallError struct {
	Hook string
	Err  error
}

func (e *HookInstallError) Error() string {
	return fmt.Sprintf("failed to install %s hook: %v", e.Hook, e.Err)
}

func (e *HookInstallError) Unwrap() error {
	return e.Err
}
