package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestDemoRunsEveryScenario(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"demo", "--color", "never", "--events"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("demo: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"scenario 1: tear out a middle tab",
		": *X* | Z",
		"scenario 2: tear out the only tab",
		"event window_retired window=1",
		"scenario 3: drop between tabs of another window",
		": P | *X* | Q",
		"scenario 4: drop a payload without the tab identifier",
		"scenario 5: cancel a drag",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in demo output:\n%s", want, text)
		}
	}
	if strings.Contains(text, "\x1b[") {
		t.Fatalf("expected no escape sequences with --color never")
	}
}

func TestDemoRejectsUnknownColorMode(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"demo", "--color", "rainbow"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error for unknown color mode")
	}
}

func TestWantColor(t *testing.T) {
	var buf bytes.Buffer
	if on, err := wantColor("auto", &buf); err != nil || on {
		t.Fatalf("expected auto to disable color for a buffer, got %v %v", on, err)
	}
	if on, _ := wantColor("always", &buf); !on {
		t.Fatalf("expected always to enable color")
	}
}
