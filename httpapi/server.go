package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/headless"
	"pkt.systems/tabtear/schema"
)

// Desktop is the window view the API reads and drives.
type Desktop interface {
	Windows(ctx context.Context) ([]schema.WindowSnapshot, error)
	Window(ctx context.Context, id schema.WindowID) (schema.WindowSnapshot, error)
	SendMessage(ctx context.Context, from, to schema.WindowID, tag, payload string) error
	SelectTab(ctx context.Context, id schema.WindowID, index int) error
}

// Driver performs user gestures on the windowing platform.
type Driver interface {
	Drag(ctx context.Context, g headless.Gesture) (headless.DragReport, error)
	CloseByUser(ctx context.Context, id schema.WindowID) error
	Sync(ctx context.Context) error
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	desktop  Desktop
	driver   Driver
	hub      *Hub
	basePath string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, desktop Desktop, driver Driver, hub *Hub) *Server {
	return &Server{
		cfg:      cfg,
		desktop:  desktop,
		driver:   driver,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/windows", s.handleWindows)
	mux.HandleFunc("/api/windows/select", s.handleSelect)
	mux.HandleFunc("/api/windows/close", s.handleClose)
	mux.HandleFunc("/api/windows/message", s.handleMessage)
	mux.HandleFunc("/api/drag", s.handleDrag)
	mux.HandleFunc("/api/stream", s.handleStream)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := pslog.Ctx(r.Context())
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := parseWindowID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		snap, err := s.desktop.Window(r.Context(), id)
		if err != nil {
			log.Warn("http window get failed", "window", int(id), "err", err)
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}
	windows, err := s.desktop.Windows(r.Context())
	if err != nil {
		log.Warn("http windows list failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
	log.Debug("http windows list ok", "count", len(windows))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := pslog.Ctx(r.Context())
	var payload struct {
		Window int `json:"window"`
		Index  int `json:"index"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http select decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := schema.WindowID(payload.Window)
	if err := s.desktop.SelectTab(r.Context(), id, payload.Index); err != nil {
		log.Warn("http select failed", "window", payload.Window, "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	snap, err := s.desktop.Window(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
	log.Info("http select ok", "window", payload.Window, "index", payload.Index)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := pslog.Ctx(r.Context())
	var payload struct {
		Window int `json:"window"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http close decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.driver.CloseByUser(r.Context(), schema.WindowID(payload.Window)); err != nil {
		log.Warn("http close failed", "window", payload.Window, "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	s.writeWindows(w, r)
	log.Info("http close ok", "window", payload.Window)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := pslog.Ctx(r.Context())
	var payload struct {
		From    int    `json:"from"`
		To      int    `json:"to"`
		Tag     string `json:"tag"`
		Payload string `json:"payload"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http message decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.desktop.SendMessage(r.Context(), schema.WindowID(payload.From), schema.WindowID(payload.To), payload.Tag, payload.Payload)
	if err != nil {
		log.Warn("http message failed", "from", payload.From, "to", payload.To, "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"delivered": true})
	log.Info("http message ok", "from", payload.From, "to", payload.To, "tag", payload.Tag)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := pslog.Ctx(r.Context())
	var payload struct {
		Source int    `json:"source"`
		Index  int    `json:"index"`
		Kind   string `json:"kind"`
		Target int    `json:"target"`
		X      int    `json:"x"`
		Result string `json:"result"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http drag decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind, err := headless.ParseGestureKind(payload.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var result schema.DropResult
	if payload.Result != "" {
		if result, err = schema.ParseDropResult(payload.Result); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	report, err := s.driver.Drag(r.Context(), headless.Gesture{
		Source: schema.WindowID(payload.Source),
		Index:  payload.Index,
		Kind:   kind,
		Target: schema.WindowID(payload.Target),
		X:      payload.X,
		Result: result,
	})
	if err != nil {
		log.Warn("http drag failed", "source", payload.Source, "kind", payload.Kind, "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.driver.Sync(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	windows, err := s.desktop.Windows(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drag": report, "windows": windows})
	log.Info("http drag ok", "gesture", report.GestureID, "result", string(report.Result))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := pslog.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	// Subscribe before the snapshot so no event falls between the two.
	ch, unsubscribe, _, _ := s.hub.Subscribe()
	defer unsubscribe()

	windows, err := s.desktop.Windows(r.Context())
	if err != nil {
		log.Warn("http stream snapshot failed", "err", err)
	}
	_ = writeSSEvent(w, StreamEvent{
		Type:      "snapshot",
		Snapshot:  windows,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	replayCount := 0
	if lastID > 0 {
		replay := s.hub.Replay(lastID)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, event)
			if event.Seq > lastID {
				lastID = event.Seq
			}
		}
		flusher.Flush()
	}

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "windows", len(windows))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if replayCount > 0 && event.Seq <= lastID {
				continue
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) writeWindows(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.Sync(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	windows, err := s.desktop.Windows(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrWindowNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidPayload),
		errors.Is(err, schema.ErrTabIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrDragRejected),
		errors.Is(err, schema.ErrDragInFlight):
		return http.StatusConflict
	case errors.Is(err, schema.ErrMailboxFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseWindowID(value string) (schema.WindowID, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || !schema.WindowID(parsed).Valid() {
		return 0, fmt.Errorf("%w: window id %q", schema.ErrInvalidRequest, value)
	}
	return schema.WindowID(parsed), nil
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
