//go:build windows
// +build windows

package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procGetWindowTextLength = user32.NewProc("GetWindowTextLengthW")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmKeyDown     = 0x0100
	wmSysKeyDown  = 0x0104
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmRButtonDown = 0x0204
	wmMButtonDown = 0x0207
	wmXButtonDown = 0x020B
	wmMouseWheel  = 0x020A
	wmMouseHWheel = 0x020E
	wmQuit        = 0x0012

	// Set by the OS on events synthesized via SendInput and friends.
	llkhfInjected = 0x00000010
	llmhfInjected = 0x00000001
)

// kbdLLHookStruct mirrors KBDLLHOOKSTRUCT
type kbdLLHookStruct struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// msLLHookStruct mirrors MSLLHOOKSTRUCT
type msLLHookStruct struct {
	Pt        point
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type point struct {
	X int32
	Y int32
}

type message struct {
	HWND    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type windowsImpl struct {
	mu           sync.Mutex
	installed    bool
	callback     func(InputEvent)
	stopped      atomic.Bool
	pumpThreadID atomic.Uint32
	wg           sync.WaitGroup

	// syscall.NewCallback allocations are process-global and limited,
	// so the hook procs are created once and reused across
	// install/uninstall cycles.
	procOnce  sync.Once
	kbProcPtr uintptr
	msProcPtr uintptr
}

func newWindowsPlatform() (Platform, error) {
	return &windowsImpl{}, nil
}

// InstallHooks registers both low-level hooks on a dedicated OS-locked
// pump thread. If the mouse hook fails after the keyboard hook was
// registered, the keyboard hook is removed before the error is returned.
func (p *windowsImpl) InstallHooks(callback func(InputEvent)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.installed {
		return fmt.Errorf("hooks already installed")
	}

	p.callback = callback
	p.stopped.Store(false)

	errCh := make(chan error, 1)
	p.wg.Add(1)
	go p.pumpLoop(errCh)

	if err := <-errCh; err != nil {
		p.wg.Wait()
		p.callback = nil
		return err
	}

	p.installed = true
	return nil
}

// UninstallHooks posts WM_QUIT to the pump thread and waits for it to
// remove both hooks and exit its message loop. Safe to call repeatedly
// and after a failed install.
func (p *windowsImpl) UninstallHooks() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.installed {
		return nil
	}

	p.stopped.Store(true)
	if tid := p.pumpThreadID.Load(); tid != 0 {
		procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
	}
	p.wg.Wait()

	p.installed = false
	p.callback = nil
	return nil
}

// pumpLoop runs on its own OS thread: it registers the hooks, reports
// the outcome on errCh, then blocks in GetMessage until WM_QUIT. The
// hooks are removed on this same thread before it exits.
func (p *windowsImpl) pumpLoop(errCh chan<- error) {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.pumpThreadID.Store(windows.GetCurrentThreadId())
	defer p.pumpThreadID.Store(0)

	p.procOnce.Do(func() {
		p.kbProcPtr = syscall.NewCallback(p.keyboardHookProc)
		p.msProcPtr = syscall.NewCallback(p.mouseHookProc)
	})

	kbHook, _, kbErr := procSetWindowsHookEx.Call(whKeyboardLL, p.kbProcPtr, 0, 0)
	if kbHook == 0 {
		errCh <- &HookInstallError{Hook: "keyboard", Err: kbErr}
		return
	}

	msHook, _, msErr := procSetWindowsHookEx.Call(whMouseLL, p.msProcPtr, 0, 0)
	if msHook == 0 {
		procUnhookWindowsHookEx.Call(kbHook)
		errCh <- &HookInstallError{Hook: "mouse", Err: msErr}
		return
	}

	errCh <- nil

	var msg message
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		// 0 means WM_QUIT, negative means error; stop pumping either way.
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}

	procUnhookWindowsHookEx.Call(kbHook)
	procUnhookWindowsHookEx.Call(msHook)
}

// emit hands the event to the registered callback. The callback is set
// before the hooks are installed and cleared only after the pump thread
// has exited, so no lock is needed on this path.
func (p *windowsImpl) emit(ev InputEvent) {
	if p.stopped.Load() {
		return
	}
	if cb := p.callback; cb != nil {
		cb(ev)
	}
}

func (p *windowsImpl) keyboardHookProc(nCode int, wParam, lParam uintptr) uintptr {
	if nCode >= 0 && (wParam == wmKeyDown || wParam == wmSysKeyDown) {
		kb := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
		p.emit(InputEvent{
			Kind:      EventKey,
			KeyCode:   kb.VkCode,
			Injected:  kb.Flags&llkhfInjected != 0,
			Timestamp: time.Now(),
		})
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (p *windowsImpl) mouseHookProc(nCode int, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		ms := (*msLLHookStruct)(unsafe.Pointer(lParam))
		injected := ms.Flags&llmhfInjected != 0

		switch wParam {
		case wmMouseMove:
			p.emit(InputEvent{
				Kind:      EventMouseMove,
				X:         ms.Pt.X,
				Y:         ms.Pt.Y,
				Injected:  injected,
				Timestamp: time.Now(),
			})
		case wmLButtonDown, wmRButtonDown, wmMButtonDown, wmXButtonDown:
			p.emit(InputEvent{
				Kind:      EventButtonDown,
				X:         ms.Pt.X,
				Y:         ms.Pt.Y,
				Injected:  injected,
				Timestamp: time.Now(),
			})
		case wmMouseWheel, wmMouseHWheel:
			// High word of mouseData is the signed raw wheel delta;
			// precision devices report fractions of WHEEL_DELTA, so it
			// is passed through undivided.
			delta := int32(int16(ms.MouseData >> 16))
			p.emit(InputEvent{
				Kind:      EventScroll,
				Wheel:     delta,
				Injected:  injected,
				Timestamp: time.Now(),
			})
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (p *windowsImpl) GetActiveWindow() (*WindowInfo, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return nil, fmt.Errorf("no foreground window")
	}

	var title string
	if length, _, _ := procGetWindowTextLength.Call(uintptr(hwnd)); length > 0 {
		buf := make([]uint16, length+1)
		procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), length+1)
		title = windows.UTF16ToString(buf)
	}

	var pid uint32
	windows.GetWindowThreadProcessId(hwnd, &pid)

	return &WindowInfo{
		Title:       title,
		Application: processImageName(pid),
		ProcessID:   int(pid),
		Timestamp:   time.Now(),
	}, nil
}

// processImageName returns the lowercased executable file name (e.g.
// "chrome.exe") for the given process, or "" if it cannot be resolved.
func processImageName(pid uint32) string {
	if pid == 0 {
		return ""
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(handle)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return ""
	}

	path := windows.UTF16ToString(buf[:size])
	if idx := strings.LastIndexByte(path, '\\'); idx >= 0 {
		path = path[idx+1:]
	}
	return strings.ToLower(path)
}

func (p *windowsImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:       "windows",
		Arch:     runtime.GOARCH,
		Hostname: hostname,
	}, nil
}
