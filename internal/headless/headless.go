// Package headless is an in-memory windowing platform. Every window gets
// its own dispatch loop and drags are driven programmatically, invoking
// the surface callbacks in the order a desktop drag-and-drop stack would.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/dispatch"
	"pkt.systems/tabtear/internal/platform"
	"pkt.systems/tabtear/schema"
)

// GestureKind selects how a simulated drag ends.
type GestureKind string

const (
	// GestureDrop releases the tab over a target window's tab strip.
	GestureDrop GestureKind = "drop"
	// GestureTearOut releases the tab outside every window.
	GestureTearOut GestureKind = "tearout"
	// GestureCancel aborts the drag.
	GestureCancel GestureKind = "cancel"
)

// ParseGestureKind validates a gesture kind string.
func ParseGestureKind(value string) (GestureKind, error) {
	switch GestureKind(value) {
	case GestureDrop, GestureTearOut, GestureCancel:
		return GestureKind(value), nil
	default:
		return "", fmt.Errorf("%w: unknown gesture %q", schema.ErrInvalidRequest, value)
	}
}

// Gesture describes one simulated drag of a single tab.
type Gesture struct {
	Source schema.WindowID
	Index  int
	Kind   GestureKind
	Target schema.WindowID
	X      int
	// Result is the completion result reported for an accepted drop. Empty
	// means move.
	Result schema.DropResult
}

// DragReport summarizes what the platform observed during a gesture.
type DragReport struct {
	GestureID string            `json:"gesture_id"`
	Source    schema.WindowID   `json:"source"`
	Target    schema.WindowID   `json:"target,omitempty"`
	Started   bool              `json:"started"`
	Accepted  bool              `json:"accepted"`
	Result    schema.DropResult `json:"result"`
	Opened    []schema.WindowID `json:"opened,omitempty"`
}

// Options configures the platform.
type Options struct {
	TabWidth     int
	MailboxDepth int
	Logger       pslog.Logger
}

type window struct {
	id      schema.WindowID
	title   string
	loop    *dispatch.Loop
	surface platform.Surface
}

// Platform implements platform.Windowing and platform.Strip in memory.
type Platform struct {
	ctx      context.Context
	tabWidth int
	depth    int
	log      pslog.Logger

	mu       sync.Mutex
	next     schema.WindowID
	windows  map[schema.WindowID]*window
	active   schema.WindowID
	launcher platform.Launcher
}

// New constructs a platform whose window loops live until ctx ends.
func New(ctx context.Context, opts Options) *Platform {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	width := opts.TabWidth
	if width <= 0 {
		width = schema.DefaultTabWidth
	}
	return &Platform{
		ctx:      ctx,
		tabWidth: width,
		depth:    opts.MailboxDepth,
		log:      logger,
		windows:  make(map[schema.WindowID]*window),
	}
}

// SetLauncher installs the content builder used by ShowStandalone.
func (p *Platform) SetLauncher(launcher platform.Launcher) {
	p.mu.Lock()
	p.launcher = launcher
	p.mu.Unlock()
}

// CreateTopLevelWindow implements platform.Windowing.
func (p *Platform) CreateTopLevelWindow(ctx context.Context, title string) (schema.WindowID, error) {
	p.mu.Lock()
	p.next++
	id := p.next
	loop := dispatch.New(fmt.Sprintf("window-%d", id), dispatch.Options{MaxPending: p.depth, Logger: p.log})
	p.windows[id] = &window{id: id, title: title, loop: loop}
	p.mu.Unlock()
	p.log.Debug("headless window created", "window", int(id), "title", title)
	return id, nil
}

// ShowStandalone implements platform.Windowing.
func (p *Platform) ShowStandalone(ctx context.Context, id schema.WindowID) error {
	p.mu.Lock()
	w := p.windows[id]
	launcher := p.launcher
	p.mu.Unlock()
	if w == nil {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	if launcher == nil {
		return errors.New("headless: no launcher installed")
	}
	w.loop.Start(p.ctx)
	surface, err := launcher.Launch(ctx, platform.LaunchRequest{ID: id, Title: w.title, Loop: w.loop, Strip: p})
	if err != nil {
		w.loop.Stop()
		return err
	}
	p.mu.Lock()
	w.surface = surface
	p.active = id
	p.mu.Unlock()
	p.log.Debug("headless window shown", "window", int(id))
	return nil
}

// CloseWindow implements platform.Windowing.
func (p *Platform) CloseWindow(ctx context.Context, id schema.WindowID) error {
	p.mu.Lock()
	w := p.windows[id]
	delete(p.windows, id)
	if p.active == id {
		p.active = 0
	}
	p.mu.Unlock()
	if w == nil {
		return nil
	}
	w.loop.Stop()
	p.log.Debug("headless window closed", "window", int(id))
	return nil
}

// SwitchActiveView implements platform.Windowing.
func (p *Platform) SwitchActiveView(ctx context.Context, from, to schema.WindowID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.windows[to] == nil {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, to)
	}
	p.active = to
	p.log.Debug("headless active view switched", "from", int(from), "to", int(to))
	return nil
}

// TabExtent implements platform.Strip with fixed-width tabs.
func (p *Platform) TabExtent(index int) (int, int) {
	return index * p.tabWidth, p.tabWidth
}

// TabWidth returns the width of every tab.
func (p *Platform) TabWidth() int {
	return p.tabWidth
}

// Active returns the foreground window, or zero.
func (p *Platform) Active() schema.WindowID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Windows returns the open window ids in order.
func (p *Platform) Windows() []schema.WindowID {
	p.mu.Lock()
	out := make([]schema.WindowID, 0, len(p.windows))
	for id := range p.windows {
		out = append(out, id)
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CloseByUser simulates the user closing a window from its title bar.
func (p *Platform) CloseByUser(ctx context.Context, id schema.WindowID) error {
	p.mu.Lock()
	w := p.windows[id]
	launcher := p.launcher
	p.mu.Unlock()
	if w == nil {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	if launcher != nil {
		launcher.ClosedByUser(ctx, id)
		return nil
	}
	return p.CloseWindow(ctx, id)
}

// Sync waits until every open window has drained the work queued so far.
func (p *Platform) Sync(ctx context.Context) error {
	for _, id := range p.Windows() {
		w := p.lookup(id)
		if w == nil {
			continue
		}
		if err := w.loop.Do(ctx, func() {}); err != nil && !errors.Is(err, schema.ErrLoopStopped) {
			return err
		}
	}
	return nil
}

// Shutdown stops every window loop.
func (p *Platform) Shutdown() {
	p.mu.Lock()
	windows := make([]*window, 0, len(p.windows))
	for _, w := range p.windows {
		windows = append(windows, w)
	}
	p.windows = make(map[schema.WindowID]*window)
	p.active = 0
	p.mu.Unlock()
	for _, w := range windows {
		w.loop.Stop()
	}
}

func (p *Platform) lookup(id schema.WindowID) *window {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windows[id]
}

func (p *Platform) shown(id schema.WindowID) *window {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.windows[id]
	if w == nil || w.surface == nil {
		return nil
	}
	return w
}

func (p *Platform) lastID() schema.WindowID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}
