package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"screen-ocr-overlay/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.key != "noop" {
		t.Fatalf("Expected default key=noop, got %q", opts.key)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--key", "d", "--concurrency", "2", "--deadline", "7s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 || opts.key != "d" || opts.concurrency != 2 || opts.deadline != 7*time.Second {
		t.Fatalf("unexpected options %+v", *opts)
	}
}

func TestRunCountsOutcomes(t *testing.T) {
	var calls atomic.Int32
	send := func(ctx context.Context, command string) error {
		if command != "KEY d\n" {
			t.Errorf("unexpected command %q", command)
		}
		switch calls.Add(1) % 3 {
		case 0:
			return singleinstance.ErrNoResident
		case 1:
			return nil
		default:
			return errors.New("refused")
		}
	}

	var out bytes.Buffer
	opts := stressOptions{n: 9, concurrency: 3, key: "d", deadline: time.Second}
	if err := runWithOptions(context.Background(), opts, send, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 9 {
		t.Fatalf("Expected 9 sends, got %d", calls.Load())
	}
	if !strings.HasPrefix(out.String(), "sent=9 ok=3 no_resident=3 err=3 ") {
		t.Fatalf("unexpected summary %q", out.String())
	}
}
