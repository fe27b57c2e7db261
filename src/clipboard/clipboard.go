package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var ErrUnavailable = errors.New("clipboard unavailable")

var (
	writeMu sync.Mutex
	initErr error
	ready   bool
)

// Init must succeed before Write does anything.
func Init() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if ready {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		return initErr
	}
	ready = true
	initErr = nil
	return nil
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if !ready {
		if initErr != nil {
			return initErr
		}
		return fmt.Errorf("%w: not initialized", ErrUnavailable)
	}
	if text == "" {
		return nil
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
