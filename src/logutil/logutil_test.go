package logutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRedactKey(t *testing.T) {
	if got := RedactKey("short"); got != "********" {
		t.Errorf("expected full mask, got %q", got)
	}
	if got := RedactKey("abcd1234efgh5678"); got != "abcd...5678" {
		t.Errorf("unexpected redaction %q", got)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("こんにちは", 3); got != "こんに..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Errorf("unexpected truncation %q", got)
	}
}

func TestFileLoggingWritesToDir(t *testing.T) {
	dir := t.TempDir()
	logger := New(Options{Level: "debug", EnableFileLogging: true, Dir: dir})
	logger.Debug("hello", "key", "value")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("expected log line, got %q", data)
	}
}

func TestRotateShiftsArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.log")
	os.WriteFile(path, []byte("current"), 0644)
	os.WriteFile(archiveName(path, 1), []byte("older"), 0644)

	rotate(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected base file moved away")
	}
	if b, _ := os.ReadFile(archiveName(path, 1)); string(b) != "current" {
		t.Errorf("expected .1 to hold current, got %q", b)
	}
	if b, _ := os.ReadFile(archiveName(path, 2)); string(b) != "older" {
		t.Errorf("expected .2 to hold older, got %q", b)
	}
}
