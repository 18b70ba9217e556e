package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxSerializesPerConversation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlight, maxInFlight int32
	var mu sync.Mutex
	got := make([]string, 0, 10)
	done := make(chan struct{}, 10)

	mb := NewMailbox(ctx, func(_ context.Context, id string, ev Event) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		got = append(got, ev.Text)
		mu.Unlock()
		atomic.AddInt32(&inFlight, -1)
		done <- struct{}{}
	}, MailboxConfig{Buffer: 16}, nil)
	defer mb.Close()

	want := []string{"a", "b", "c", "d", "e"}
	for _, s := range want {
		require.NoError(t, mb.Deliver(ctx, "tg:1", Text(s)))
	}
	for range want {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestMailboxRunsConversationsConcurrently(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	started := make(chan string, 2)
	mb := NewMailbox(ctx, func(_ context.Context, id string, _ Event) {
		started <- id
		<-release
	}, MailboxConfig{}, nil)

	require.NoError(t, mb.Deliver(ctx, "tg:1", Text("x")))
	require.NoError(t, mb.Deliver(ctx, "tg:2", Text("y")))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-started:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("second conversation was blocked by the first")
		}
	}
	close(release)
	mb.Close()
	assert.True(t, seen["tg:1"] && seen["tg:2"])
}

func TestMailboxFull(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block := make(chan struct{})
	mb := NewMailbox(ctx, func(context.Context, string, Event) { <-block }, MailboxConfig{Buffer: 1}, nil)

	var full bool
	for i := 0; i < 5; i++ {
		if err := mb.Deliver(ctx, "web:a", Text("x")); errors.Is(err, ErrMailboxFull) {
			full = true
			break
		}
	}
	close(block)
	mb.Close()
	assert.True(t, full, "expected ErrMailboxFull once the buffer is exhausted")
}

func TestMailboxRetiresIdleWorkers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan struct{}, 2)
	mb := NewMailbox(ctx, func(context.Context, string, Event) { handled <- struct{}{} },
		MailboxConfig{IdleTimeout: 20 * time.Millisecond}, nil)
	defer mb.Close()

	require.NoError(t, mb.Deliver(ctx, "tg:9", Text("hola")))
	<-handled

	deadline := time.Now().Add(2 * time.Second)
	for mb.Active() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 0, mb.Active())

	require.NoError(t, mb.Deliver(ctx, "tg:9", Text("otra vez")))
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not recreated")
	}
}

func TestMailboxRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan string, 2)
	mb := NewMailbox(ctx, func(_ context.Context, _ string, ev Event) {
		if ev.Text == "boom" {
			panic("boom")
		}
		handled <- ev.Text
	}, MailboxConfig{}, nil)
	defer mb.Close()

	require.NoError(t, mb.Deliver(ctx, "tg:1", Text("boom")))
	require.NoError(t, mb.Deliver(ctx, "tg:1", Text("ok")))
	select {
	case got := <-handled:
		assert.Equal(t, "ok", got)
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}
}

func TestMailboxDeliverAfterClose(t *testing.T) {
	t.Parallel()

	mb := NewMailbox(context.Background(), func(context.Context, string, Event) {}, MailboxConfig{}, nil)
	mb.Close()
	assert.ErrorIs(t, mb.Deliver(context.Background(), "tg:1", Text("x")), ErrMailboxClosed)
}
