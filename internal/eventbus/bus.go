package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/schema"
)

// AllWindows subscribes to events from every window.
const AllWindows schema.WindowID = 0

// Bus fans desktop events out to subscribers, optionally filtered by window.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.WindowID]map[chan schema.DesktopEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.WindowID]map[chan schema.DesktopEvent]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for window (or AllWindows) and returns a
// channel + cancel.
func (b *Bus) Subscribe(window schema.WindowID) (<-chan schema.DesktopEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.DesktopEvent, b.depth)
	b.mu.Lock()
	windowSubs := b.subs[window]
	if windowSubs == nil {
		windowSubs = make(map[chan schema.DesktopEvent]struct{})
		b.subs[window] = windowSubs
	}
	windowSubs[ch] = struct{}{}
	count := len(windowSubs)
	b.mu.Unlock()
	b.log.With("window", int(window)).Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[window]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, window)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("window", int(window)).Debug("eventbus unsubscribe")
		})
	}
}

// OnDesktopEvent implements core.EventSink.
func (b *Bus) OnDesktopEvent(event schema.DesktopEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := b.sendLocked(event.Window, event)
	if event.Window != AllWindows {
		dropped += b.sendLocked(AllWindows, event)
	}
	if dropped > 0 {
		b.log.With("window", int(event.Window)).Trace("eventbus dropped", "count", dropped, "type", string(event.Type))
	}
}

func (b *Bus) sendLocked(window schema.WindowID, event schema.DesktopEvent) int {
	dropped := 0
	for sub := range b.subs[window] {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	return dropped
}
