package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pkt.systems/tabtear/core"
	"pkt.systems/tabtear/internal/headless"
	"pkt.systems/tabtear/internal/interwindow"
	"pkt.systems/tabtear/internal/registry"
	"pkt.systems/tabtear/schema"
)

type testStack struct {
	server *Server
	hub    *Hub
	desk   *core.Desktop
	plat   *headless.Platform
	main   schema.WindowID
}

func newTestStack(t *testing.T, cfg Config, titles ...string) *testStack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	plat := headless.New(ctx, headless.Options{TabWidth: 100})
	t.Cleanup(plat.Shutdown)
	channel := interwindow.New(nil)
	reg, err := registry.New(registry.Deps{Platform: plat, Main: channel})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	hub := NewHub(cfg.HubHistory, nil)
	desk, err := core.NewDesktop(schema.DesktopConfig{}, core.DesktopDeps{
		Windowing: plat,
		Registry:  reg,
		Channel:   channel,
		EventSink: hub,
	})
	if err != nil {
		t.Fatalf("desktop: %v", err)
	}
	plat.SetLauncher(desk)
	seed := make([]schema.TabRecord, 0, len(titles))
	for _, title := range titles {
		seed = append(seed, schema.TabRecord{Title: title, Content: "body-" + title})
	}
	main, err := desk.OpenMain(ctx, seed)
	if err != nil {
		t.Fatalf("open main: %v", err)
	}
	if err := plat.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	return &testStack{server: NewServer(cfg, desk, plat, hub), hub: hub, desk: desk, plat: plat, main: main}
}

func (s *testStack) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

type windowsResponse struct {
	Windows []schema.WindowSnapshot `json:"windows"`
	Drag    *headless.DragReport    `json:"drag"`
}

func decodeWindows(t *testing.T, rec *httptest.ResponseRecorder) windowsResponse {
	t.Helper()
	var resp windowsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestWindowsList(t *testing.T) {
	stack := newTestStack(t, Config{}, "X", "Y")
	rec := stack.do(t, http.MethodGet, "/api/windows", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeWindows(t, rec)
	if len(resp.Windows) != 1 {
		t.Fatalf("expected one window, got %d", len(resp.Windows))
	}
	got := resp.Windows[0]
	if got.ID != stack.main || !got.Main || len(got.Tabs) != 2 || got.Tabs[1].Content != "body-Y" {
		t.Fatalf("unexpected window: %+v", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestWindowGetByID(t *testing.T) {
	stack := newTestStack(t, Config{}, "X")
	rec := stack.do(t, http.MethodGet, "/api/windows?id=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := stack.do(t, http.MethodGet, "/api/windows?id=9", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := stack.do(t, http.MethodGet, "/api/windows?id=abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := stack.do(t, http.MethodPost, "/api/windows", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestDragTearOutAndDropBack(t *testing.T) {
	stack := newTestStack(t, Config{}, "X", "Y", "Z")
	rec := stack.do(t, http.MethodPost, "/api/drag", `{"source":1,"index":1,"kind":"tearout"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeWindows(t, rec)
	if resp.Drag == nil || len(resp.Drag.Opened) != 1 {
		t.Fatalf("expected one opened window, got %+v", resp.Drag)
	}
	if len(resp.Windows) != 2 {
		t.Fatalf("expected two windows, got %d", len(resp.Windows))
	}
	if got := resp.Windows[0].Titles(); strings.Join(got, ",") != "X,Z" {
		t.Fatalf("unexpected source tabs: %v", got)
	}
	if got := resp.Windows[1].Titles(); strings.Join(got, ",") != "Y" {
		t.Fatalf("unexpected new window tabs: %v", got)
	}

	rec = stack.do(t, http.MethodPost, "/api/drag", `{"source":2,"index":0,"kind":"drop","target":1,"x":150}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp = decodeWindows(t, rec)
	if len(resp.Windows) != 1 {
		t.Fatalf("expected emptied window retired, got %d windows", len(resp.Windows))
	}
	if got := resp.Windows[0].Titles(); strings.Join(got, ",") != "X,Y,Z" {
		t.Fatalf("unexpected tabs after drop back: %v", got)
	}
}

func TestDragCopyResultKeepsSourceTab(t *testing.T) {
	stack := newTestStack(t, Config{}, "X", "Y", "Z")
	stack.do(t, http.MethodPost, "/api/drag", `{"source":1,"index":1,"kind":"tearout"}`)
	rec := stack.do(t, http.MethodPost, "/api/drag", `{"source":1,"index":0,"kind":"drop","target":2,"x":0,"result":"copy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeWindows(t, rec)
	if resp.Drag == nil || resp.Drag.Result != schema.DropCopy {
		t.Fatalf("expected copy result, got %+v", resp.Drag)
	}
	if len(resp.Windows) != 2 {
		t.Fatalf("expected two windows, got %d", len(resp.Windows))
	}
	if got := resp.Windows[0].Titles(); strings.Join(got, ",") != "X,Z" {
		t.Fatalf("copy must leave source tabs, got %v", got)
	}
	if got := resp.Windows[1].Titles(); strings.Join(got, ",") != "X,Y" {
		t.Fatalf("expected target to gain X, got %v", got)
	}
}

func TestDragErrors(t *testing.T) {
	stack := newTestStack(t, Config{}, "X")
	cases := []struct {
		body string
		want int
	}{
		{body: `{"source":1,"index":0,"kind":"fling"}`, want: http.StatusBadRequest},
		{body: `{"source":1,"index":0,"kind":"drop","target":7}`, want: http.StatusNotFound},
		{body: `{"source":1,"index":4,"kind":"cancel"}`, want: http.StatusConflict},
		{body: `{"source":1,"bogus":true}`, want: http.StatusBadRequest},
		{body: `{"source":1,"index":0,"kind":"drop","target":1,"result":"teleport"}`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := stack.do(t, http.MethodPost, "/api/drag", tc.body); rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.body, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestCloseWindow(t *testing.T) {
	stack := newTestStack(t, Config{}, "X", "Y")
	stack.do(t, http.MethodPost, "/api/drag", `{"source":1,"index":1,"kind":"tearout"}`)
	rec := stack.do(t, http.MethodPost, "/api/windows/close", `{"window":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeWindows(t, rec); len(resp.Windows) != 1 {
		t.Fatalf("expected one window left, got %d", len(resp.Windows))
	}
	if rec := stack.do(t, http.MethodPost, "/api/windows/close", `{"window":2}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for closed window, got %d", rec.Code)
	}
}

func TestSelectTab(t *testing.T) {
	stack := newTestStack(t, Config{}, "X", "Y")
	rec := stack.do(t, http.MethodPost, "/api/windows/select", `{"window":1,"index":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var snap schema.WindowSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Title != "Y" || !snap.Tabs[1].Selected {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if rec := stack.do(t, http.MethodPost, "/api/windows/select", `{"window":1,"index":5}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSendMessage(t *testing.T) {
	stack := newTestStack(t, Config{}, "X")
	rec := stack.do(t, http.MethodPost, "/api/windows/message", `{"from":1,"to":0,"tag":"ping","payload":"hi"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := stack.plat.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	found := false
	for _, event := range stack.hub.Replay(0) {
		if event.Type == string(schema.DesktopEventMessage) && event.Message != nil && event.Message.Tag == "ping" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected message event in hub history")
	}
	if rec := stack.do(t, http.MethodPost, "/api/windows/message", `{"from":1,"to":5,"tag":"ping"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBasePath(t *testing.T) {
	stack := newTestStack(t, Config{BasePath: "/desk/"}, "X")
	if rec := stack.do(t, http.MethodGet, "/desk/api/windows", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under base path, got %d", rec.Code)
	}
	if rec := stack.do(t, http.MethodGet, "/desk", ""); rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if rec := stack.do(t, http.MethodGet, "/api/windows", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside base path, got %d", rec.Code)
	}
}

func TestStreamSnapshotAndReplay(t *testing.T) {
	stack := newTestStack(t, Config{}, "X", "Y")
	srv := httptest.NewServer(stack.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	if first.Type != "snapshot" || len(first.Snapshot) != 1 || len(first.Snapshot[0].Tabs) != 2 {
		t.Fatalf("unexpected snapshot event: %+v", first)
	}
	second := readEvent(t, reader)
	if second.Seq != 2 {
		t.Fatalf("expected replay to start after seq 1, got %d", second.Seq)
	}
}

func readEvent(t *testing.T, reader *bufio.Reader) StreamEvent {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	}
}
