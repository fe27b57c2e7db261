//go:build windows

package notification

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	mbOK          = 0x00000000
	mbIconError   = 0x00000010
	mbSystemModal = 0x00001000
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")
)

// ShowBlockingError displays a modal, blocking error dialog and returns after user dismisses it.
func ShowBlockingError(title, message string) {
	titlePtr, _ := windows.UTF16PtrFromString(title)
	msgPtr, _ := windows.UTF16PtrFromString(message)
	procMessageBoxW.Call(0, uintptr(unsafe.Pointer(msgPtr)), uintptr(unsafe.Pointer(titlePtr)), mbOK|mbIconError|mbSystemModal)
}
