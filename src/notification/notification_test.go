//go:build !windows

package notification

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalLogsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	Fatal(logger, errors.New("capture failed"))
	assert.True(t, strings.Contains(buf.String(), "capture failed"))
}
