package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/tabtear/schema"
)

func TestPostRunsInOrder(t *testing.T) {
	loop := New("test", Options{})
	loop.Start(context.Background())
	defer loop.Stop()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if err := loop.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}
	if err := loop.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("do: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 100 {
		t.Fatalf("expected 100 runs, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
}

func TestPostDoesNotBlockWhenFull(t *testing.T) {
	loop := New("test", Options{MaxPending: 1})
	if err := loop.Post(func() {}); err != nil {
		t.Fatalf("first post: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- loop.Post(func() {})
	}()
	select {
	case err := <-done:
		if !errors.Is(err, schema.ErrMailboxFull) {
			t.Fatalf("expected ErrMailboxFull, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("post blocked on full queue")
	}
}

func TestStopRejectsWork(t *testing.T) {
	loop := New("test", Options{})
	loop.Start(context.Background())
	loop.Stop()
	select {
	case <-loop.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("loop did not exit")
	}
	if err := loop.Post(func() {}); !errors.Is(err, schema.ErrLoopStopped) {
		t.Fatalf("expected ErrLoopStopped, got %v", err)
	}
	if err := loop.Do(context.Background(), func() {}); !errors.Is(err, schema.ErrLoopStopped) {
		t.Fatalf("expected ErrLoopStopped from Do, got %v", err)
	}
}

func TestStopFromInsideLoop(t *testing.T) {
	loop := New("test", Options{})
	loop.Start(context.Background())
	if err := loop.Do(context.Background(), loop.Stop); err != nil {
		t.Fatalf("do: %v", err)
	}
	select {
	case <-loop.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("loop did not exit after self stop")
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := New("test", Options{})
	loop.Start(ctx)
	cancel()
	select {
	case <-loop.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("loop did not exit on cancel")
	}
	if !loop.Stopped() {
		t.Fatalf("expected loop to report stopped")
	}
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	loop := New("test", Options{})
	loop.Start(context.Background())
	defer loop.Stop()
	_ = loop.Post(func() { panic("boom") })
	ran := false
	if err := loop.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !ran {
		t.Fatalf("expected loop to keep running after panic")
	}
}
