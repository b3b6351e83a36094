package interwindow

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/tabtear/internal/dispatch"
	"pkt.systems/tabtear/schema"
)

func TestSendDeliversOnReceiverLoop(t *testing.T) {
	ch := New(nil)
	loop := startLoop(t, "b")
	got := make(chan schema.Message, 1)
	cancel := ch.Subscribe(2, loop, func(msg schema.Message) { got <- msg })
	defer cancel()

	if !ch.Send(context.Background(), schema.NewCloseMessage(1, 2, 4)) {
		t.Fatalf("expected send to succeed")
	}
	select {
	case msg := <-got:
		if msg.From != 1 || msg.To != 2 || msg.Close == nil || msg.Close.Index != 4 {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
	}
}

func TestSendOrderedPerSender(t *testing.T) {
	ch := New(nil)
	loop := startLoop(t, "b")
	var mu sync.Mutex
	var got []string
	cancel := ch.Subscribe(2, loop, func(msg schema.Message) {
		mu.Lock()
		got = append(got, msg.Custom.Payload)
		mu.Unlock()
	})
	defer cancel()

	payloads := []string{"m1", string(make([]byte, 1<<16)), "m3"}
	for _, payload := range payloads {
		if !ch.Send(context.Background(), schema.NewCustomMessage(1, 2, "seq", payload)) {
			t.Fatalf("send failed")
		}
	}
	if err := loop.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("drain: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(payloads) {
		t.Fatalf("expected %d messages, got %d", len(payloads), len(got))
	}
	for i := range payloads {
		if got[i] != payloads[i] {
			t.Fatalf("message %d out of order", i)
		}
	}
}

func TestSendUnknownDestinationIsDropped(t *testing.T) {
	ch := New(nil)
	if ch.Send(context.Background(), schema.NewCloseMessage(1, 9, 0)) {
		t.Fatalf("expected send to unknown window to fail")
	}
}

func TestSendToMainAlias(t *testing.T) {
	ch := New(nil)
	loop := startLoop(t, "main")
	got := make(chan schema.Message, 1)
	defer ch.Subscribe(1, loop, func(msg schema.Message) { got <- msg })()

	if ch.Send(context.Background(), schema.NewCustomMessage(3, schema.MainWindow, "hello", "")) {
		t.Fatalf("expected send to fail before main is set")
	}
	ch.SetMain(1)
	if !ch.Send(context.Background(), schema.NewCustomMessage(3, schema.MainWindow, "hello", "")) {
		t.Fatalf("expected send to main to succeed")
	}
	select {
	case msg := <-got:
		if msg.To != 1 {
			t.Fatalf("expected alias resolved to window 1, got %d", msg.To)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
	}
}

func TestCancelOnlyRemovesOwnSubscription(t *testing.T) {
	ch := New(nil)
	loop := startLoop(t, "b")
	first := ch.Subscribe(2, loop, func(schema.Message) {})
	second := ch.Subscribe(2, loop, func(schema.Message) {})
	first()
	if !ch.Subscribed(2) {
		t.Fatalf("stale cancel removed replacement subscription")
	}
	second()
	if ch.Subscribed(2) {
		t.Fatalf("expected subscription removed")
	}
}

func TestSendToStoppedLoopFails(t *testing.T) {
	ch := New(nil)
	loop := startLoop(t, "b")
	defer ch.Subscribe(2, loop, func(schema.Message) {})()
	loop.Stop()
	if ch.Send(context.Background(), schema.NewCloseMessage(1, 2, 0)) {
		t.Fatalf("expected send to stopped loop to fail")
	}
}

func startLoop(t *testing.T, name string) *dispatch.Loop {
	t.Helper()
	loop := dispatch.New(name, dispatch.Options{})
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)
	return loop
}
