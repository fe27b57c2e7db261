package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Push(KeyEvent{Key: KeyDebug})
	q.Push(KeyEvent{Key: KeyTranslate})
	q.Push(KeyEvent{Key: KeyClear})

	for _, want := range []Key{KeyDebug, KeyTranslate, KeyClear} {
		e, ok := q.Pop(context.Background(), 10*time.Millisecond)
		require.True(t, ok)
		assert.Equal(t, KeyEvent{Key: want}, e)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueuePopTimesOut(t *testing.T) {
	q := NewQueue()
	start := time.Now()
	e, ok := q.Pop(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.Nil(t, e)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := NewQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(KeyEvent{Key: KeyCopy})
	}()
	e, ok := q.Pop(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, KeyEvent{Key: KeyCopy}, e)
}

func TestQueuePopReturnsOnCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := q.Pop(ctx, time.Second)
	assert.False(t, ok)
}

func TestQueueConcurrentPushKeepsEverything(t *testing.T) {
	q := NewQueue()
	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(KeyEvent{Key: KeyDebug})
		}()
	}
	wg.Wait()

	got := 0
	for {
		if _, ok := q.Pop(context.Background(), 5*time.Millisecond); !ok {
			break
		}
		got++
	}
	assert.Equal(t, n, got)
}
