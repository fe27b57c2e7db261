// Package notification shows the user a message when the overlay cannot
// carry on.
package notification

import (
	"fmt"
	"log/slog"

	"screen-ocr-overlay/src/logutil"
)

const maxMessageRunes = 800

// FatalTitle is the caption used for errors that end a session.
const FatalTitle = "Screen OCR Overlay"

// Fatal reports err to the user and blocks until it is dismissed where the
// platform supports a modal dialog.
func Fatal(logger *slog.Logger, err error) {
	msg := logutil.Truncate(fmt.Sprintf("The overlay stopped:\n\n%v", err), maxMessageRunes)
	logger.Error("session ended with error", "error", err)
	ShowBlockingError(FatalTitle, msg)
}
