package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-ocr-overlay/src/logutil"
)

func TestSubmitRunsEveryJob(t *testing.T) {
	p := New(3, logutil.Discard())
	var n atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(context.Background(), func(context.Context) { n.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int32(20), n.Load())
}

func TestTrySubmitDropsWhenFull(t *testing.T) {
	p := New(1, logutil.Discard())
	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.TrySubmit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	// worker busy: first TrySubmit fills the slot, second is dropped
	assert.True(t, p.TrySubmit(context.Background(), func(context.Context) {}))
	assert.False(t, p.TrySubmit(context.Background(), func(context.Context) {}))
	close(release)
	p.Close()
}

func TestSubmitHonorsContext(t *testing.T) {
	p := New(1, logutil.Discard())
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func(context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Submit(ctx, func(context.Context) {}), context.DeadlineExceeded)
	close(release)
	p.Close()
}

func TestCancelledJobsAreSkipped(t *testing.T) {
	p := New(1, logutil.Discard())
	var mu sync.Mutex
	ran := 0
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Submit(ctx, func(context.Context) {
		mu.Lock()
		ran++
		mu.Unlock()
	}))
	cancel()
	close(release)
	p.Close()
	assert.Equal(t, 0, ran)
}
