package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64                  `json:"seq"`
	Type      string                  `json:"type"`
	Window    schema.WindowID         `json:"window,omitempty"`
	Title     string                  `json:"title,omitempty"`
	Index     *int                    `json:"index,omitempty"`
	Tab       *schema.TabRecord       `json:"tab,omitempty"`
	Peer      schema.WindowID         `json:"peer,omitempty"`
	Message   *schema.CustomMessage   `json:"message,omitempty"`
	Snapshot  []schema.WindowSnapshot `json:"snapshot,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// Hub fans desktop events out to stream subscribers and keeps a bounded
// history for Last-Event-ID replay.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
	log         pslog.Logger
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int, logger pslog.Logger) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
		log:         logger,
	}
}

// OnDesktopEvent implements core.EventSink.
func (h *Hub) OnDesktopEvent(event schema.DesktopEvent) {
	h.log.Trace("hub desktop event", "type", string(event.Type), "window", int(event.Window))
	out := StreamEvent{
		Type:      string(event.Type),
		Window:    event.Window,
		Title:     event.Title,
		Tab:       event.Tab,
		Peer:      event.Peer,
		Message:   event.Message,
		Timestamp: time.Now(),
	}
	switch event.Type {
	case schema.DesktopEventTabInserted, schema.DesktopEventTabRemoved, schema.DesktopEventTabSelected:
		index := event.Index
		out.Index = &index
	}
	h.publish(out)
}

// Subscribe registers a subscriber and returns the current seq and history.
func (h *Hub) Subscribe() (<-chan StreamEvent, func(), uint64, []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	history := append([]StreamEvent(nil), h.history...)
	seq := h.seq
	h.log.Info("hub subscribe", "subs", len(h.subs), "history", len(history))
	unsub := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		remaining := len(h.subs)
		h.mu.Unlock()
		h.log.Info("hub unsubscribe", "subs", remaining)
	}
	return ch, unsub, seq, history
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	h.log.Debug("hub replay", "after", after, "count", len(events))
	return events
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	// Sends happen under the lock so an unsubscribe cannot close a channel
	// mid-send. They never block.
	dropped := 0
	for sub := range h.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		h.log.Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}
