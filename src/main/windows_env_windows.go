//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

// enableDPIAwareness sets per-monitor DPI awareness so capture coordinates
// match physical pixels.
func enableDPIAwareness() {
	shcore := windows.NewLazySystemDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret != 0 {
			slog.Warn("failed to set per-monitor DPI awareness", "code", ret)
		}
		return
	}

	user32 := windows.NewLazySystemDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
			slog.Warn("failed to set system DPI awareness")
		}
		return
	}
	slog.Warn("no DPI awareness API available")
}
