// Package desktop wraps the handful of Win32 window and keyboard calls the
// automation needs: top-level window lookup, foreground activation, child
// control enumeration, button clicks, WM_CLOSE and keybd_event injection.
//
// The Windows implementation lives in desktop_windows.go. Other platforms get
// a stub whose constructor returns ErrUnsupported so the rest of the module
// still builds and tests run anywhere against Fake.
package desktop

import "errors"

// Handle is an opaque window handle (HWND).
type Handle uintptr

// DialogClass is the window class of standard Win32 dialogs (file open/save).
const DialogClass = "#32770"

// Virtual-key codes used by the automation.
const (
	VKReturn    uint8 = 0x0D
	VKControl   uint8 = 0x11
	VKMenu      uint8 = 0x12 // Alt
	VKSpace     uint8 = 0x20
	VKDelete    uint8 = 0x2E
	VKNumpad0   uint8 = 0x60
	VKSubtract  uint8 = 0x6D
	VKDecimal   uint8 = 0x6E
	VKOEMMinus  uint8 = 0xBD
	VKOEMPeriod uint8 = 0xBE
)

// ErrUnsupported is returned by New on hosts without Win32.
var ErrUnsupported = errors.New("desktop automation requires windows")

// Desktop is the Win32 surface consumed by the driver package. Key events
// target whatever window has the foreground, not a specific handle.
type Desktop interface {
	// FindWindow looks up a top-level window by exact title. An empty class
	// matches any window class.
	FindWindow(class, title string) (Handle, bool)
	SetForeground(h Handle) error
	// Children lists the child windows (controls) of h in enumeration order.
	Children(h Handle) []Handle
	WindowText(h Handle) string
	// Click sends BM_CLICK to a button control.
	Click(h Handle) error
	// PostClose posts WM_CLOSE to h.
	PostClose(h Handle) error
	KeyDown(vk uint8)
	KeyUp(vk uint8)
}
