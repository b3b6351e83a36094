package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/platform"
	"pkt.systems/tabtear/schema"
)

// Desktop is the process-wide window manager. It builds window content for
// the platform and exposes read-only views of every live window.
type Desktop struct {
	cfg       schema.DesktopConfig
	windowing platform.Windowing
	registry  DesktopRegistry
	channel   MessageChannel
	sink      EventSink
	logger    pslog.Logger

	mu      sync.Mutex
	windows map[schema.WindowID]*Window
	seeds   map[schema.WindowID][]schema.TabRecord
	mainID  schema.WindowID
}

// NewDesktop constructs the desktop service.
func NewDesktop(cfg schema.DesktopConfig, deps DesktopDeps) (*Desktop, error) {
	normalized, err := schema.NormalizeDesktopConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Windowing == nil {
		return nil, errors.New("desktop: windowing platform is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("desktop: registry is required")
	}
	if deps.Channel == nil {
		return nil, errors.New("desktop: channel is required")
	}
	sink := deps.EventSink
	if sink == nil {
		sink = nopSink{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	d := &Desktop{
		cfg:       normalized,
		windowing: deps.Windowing,
		registry:  deps.Registry,
		channel:   deps.Channel,
		sink:      sink,
		logger:    logger,
		windows:   make(map[schema.WindowID]*Window),
		seeds:     make(map[schema.WindowID][]schema.TabRecord),
	}
	d.registry.OnReleased(d.released)
	d.registry.OnActivated(d.activated)
	return d, nil
}

// Config returns the normalized desktop configuration.
func (d *Desktop) Config() schema.DesktopConfig {
	return d.cfg
}

// OpenMain creates the first window with seed as its tabs. A nil seed uses
// the configured seed tabs.
func (d *Desktop) OpenMain(ctx context.Context, seed []schema.TabRecord) (schema.WindowID, error) {
	if ctx == nil {
		return 0, errors.New("missing context")
	}
	if seed == nil {
		seed = d.cfg.SeedTabs
	}
	d.mu.Lock()
	if d.mainID.Valid() {
		d.mu.Unlock()
		return 0, schema.ErrMainWindowOpen
	}
	d.mu.Unlock()

	id, err := d.windowing.CreateTopLevelWindow(ctx, d.cfg.MainTitle)
	if err != nil {
		return 0, err
	}
	if err := d.registry.RegisterMain(ctx, id, d.cfg.MainTitle); err != nil {
		_ = d.windowing.CloseWindow(ctx, id)
		return 0, err
	}
	d.mu.Lock()
	d.mainID = id
	d.seeds[id] = append([]schema.TabRecord(nil), seed...)
	d.mu.Unlock()
	if err := d.windowing.ShowStandalone(ctx, id); err != nil {
		d.registry.Retire(ctx, id)
		return 0, err
	}
	d.logger.Info("desktop main window opened", "window", int(id), "tabs", len(seed))
	return id, nil
}

// Launch implements platform.Launcher.
func (d *Desktop) Launch(ctx context.Context, req platform.LaunchRequest) (platform.Surface, error) {
	if req.Loop == nil {
		return nil, fmt.Errorf("%w: window %d has no loop", schema.ErrInvalidRequest, req.ID)
	}
	d.mu.Lock()
	seeds := d.seeds[req.ID]
	delete(d.seeds, req.ID)
	d.mu.Unlock()

	w := newWindow(context.WithoutCancel(ctx), windowConfig{
		id:       req.ID,
		title:    req.Title,
		loop:     req.Loop,
		seeds:    seeds,
		registry: d.registry,
		coord:    CoordinatorDeps{Sender: d.channel, Strip: req.Strip},
		emit:     d.emit,
	})
	w.cancel = d.channel.Subscribe(req.ID, req.Loop, w.handleMessage)

	d.mu.Lock()
	d.windows[req.ID] = w
	d.mu.Unlock()

	if err := req.Loop.Post(w.bootstrap); err != nil {
		d.mu.Lock()
		delete(d.windows, req.ID)
		d.mu.Unlock()
		w.cancel()
		return nil, err
	}
	return w, nil
}

// ClosedByUser implements platform.Launcher.
func (d *Desktop) ClosedByUser(ctx context.Context, id schema.WindowID) {
	d.logger.Info("desktop window closed by user", "window", int(id))
	d.registry.Retire(ctx, id)
}

// Windows returns a snapshot of every live window ordered by id.
func (d *Desktop) Windows(ctx context.Context) ([]schema.WindowSnapshot, error) {
	entries := d.registry.List()
	out := make([]schema.WindowSnapshot, 0, len(entries))
	for _, entry := range entries {
		w := d.window(entry.ID)
		if w == nil {
			continue
		}
		snap, err := w.snapshot(ctx)
		if errors.Is(err, schema.ErrLoopStopped) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snap.Main = entry.Main
		snap.Active = entry.Active
		snap.Liveness = entry.Liveness
		out = append(out, snap)
	}
	return out, nil
}

// Window returns a snapshot of one window.
func (d *Desktop) Window(ctx context.Context, id schema.WindowID) (schema.WindowSnapshot, error) {
	entry, ok := d.registry.Lookup(id)
	w := d.window(id)
	if !ok || w == nil {
		return schema.WindowSnapshot{}, fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	snap, err := w.snapshot(ctx)
	if errors.Is(err, schema.ErrLoopStopped) {
		return schema.WindowSnapshot{}, fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	if err != nil {
		return schema.WindowSnapshot{}, err
	}
	snap.Main = entry.Main
	snap.Active = entry.Active
	snap.Liveness = entry.Liveness
	return snap, nil
}

// SendMessage delivers a custom message from one window to another.
func (d *Desktop) SendMessage(ctx context.Context, from, to schema.WindowID, tag, payload string) error {
	if tag == "" {
		return fmt.Errorf("%w: message tag is required", schema.ErrInvalidRequest)
	}
	if _, ok := d.registry.Lookup(from); !ok {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, from)
	}
	if !d.channel.Send(ctx, schema.NewCustomMessage(from, to, tag, payload)) {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, to)
	}
	return nil
}

// SelectTab changes the selected tab of a window.
func (d *Desktop) SelectTab(ctx context.Context, id schema.WindowID, index int) error {
	w := d.window(id)
	if w == nil {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	var selErr error
	if err := w.loop.Do(ctx, func() { selErr = w.coord.Select(index) }); err != nil {
		return err
	}
	return selErr
}

// Main returns the window currently holding the main role.
func (d *Desktop) Main() schema.WindowID {
	return d.registry.Main()
}

func (d *Desktop) window(id schema.WindowID) *Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.windows[id]
}

func (d *Desktop) released(id schema.WindowID) {
	d.mu.Lock()
	w := d.windows[id]
	delete(d.windows, id)
	delete(d.seeds, id)
	if d.mainID == id {
		d.mainID = d.registry.Main()
	}
	d.mu.Unlock()
	if w != nil && w.cancel != nil {
		w.cancel()
	}
	d.emit(schema.DesktopEvent{Type: schema.DesktopEventWindowRetired, Window: id})
}

func (d *Desktop) activated(id schema.WindowID) {
	d.emit(schema.DesktopEvent{Type: schema.DesktopEventWindowActivated, Window: id})
}

func (d *Desktop) emit(event schema.DesktopEvent) {
	d.sink.OnDesktopEvent(event)
}
