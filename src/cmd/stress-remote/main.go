package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/singleinstance"
	"screen-ocr-overlay/src/worker"
)

type stressOptions struct {
	n           int
	concurrency int
	key         string
	deadline    time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-remote",
		Short:         "Stress test the running overlay's command port",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, singleinstance.Send, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of commands to send")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 8, "commands in flight at once")
	cmd.Flags().StringVar(&opts.key, "key", "noop", "key to send; unbound keys do not trigger a pass")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-command timeout")

	return cmd
}

type sendFunc func(ctx context.Context, command string) error

func runWithOptions(ctx context.Context, opts stressOptions, send sendFunc, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var okCount, absentCount, errCount atomic.Int32

	command := singleinstance.KeyCommand(events.Key(opts.key))
	pool := worker.New(opts.concurrency, logutil.Discard())
	start := time.Now()
	for i := 0; i < opts.n; i++ {
		err := pool.Submit(ctx, func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()
			switch err := send(ctx, command); {
			case err == nil:
				okCount.Add(1)
			case errors.Is(err, singleinstance.ErrNoResident):
				absentCount.Add(1)
			default:
				errCount.Add(1)
			}
		})
		if err != nil {
			break
		}
	}
	pool.Close()
	elapsed := time.Since(start)
	fmt.Fprintf(out, "sent=%d ok=%d no_resident=%d err=%d elapsed=%s\n", opts.n, okCount.Load(), absentCount.Load(), errCount.Load(), elapsed)
	return nil
}
