package core

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/codec"
	"pkt.systems/tabtear/internal/dispatch"
	"pkt.systems/tabtear/internal/logx"
	"pkt.systems/tabtear/schema"
)

// Window is the content of one top-level window: its tabs, its transfer
// coordinator and the loop everything runs on. It implements
// platform.Surface.
type Window struct {
	id       schema.WindowID
	ctx      context.Context
	loop     *dispatch.Loop
	title    string
	tabs     *TabCollection
	coord    *Coordinator
	registry WindowRegistry
	emit     func(schema.DesktopEvent)
	seeds    []schema.TabRecord
	cancel   func()
	log      pslog.Logger
}

type windowConfig struct {
	id       schema.WindowID
	title    string
	loop     *dispatch.Loop
	seeds    []schema.TabRecord
	registry WindowRegistry
	coord    CoordinatorDeps
	emit     func(schema.DesktopEvent)
}

func newWindow(ctx context.Context, cfg windowConfig) *Window {
	log := logx.WithWindow(ctx, cfg.id)
	ctx = logx.ContextWithWindowLogger(ctx, log, cfg.id)
	w := &Window{
		id:       cfg.id,
		ctx:      ctx,
		loop:     cfg.loop,
		title:    cfg.title,
		tabs:     NewTabCollection(),
		registry: cfg.registry,
		emit:     cfg.emit,
		seeds:    cfg.seeds,
		log:      log,
	}
	deps := cfg.coord
	deps.Registry = cfg.registry
	deps.Notify = w.notify
	deps.Logger = log
	w.coord = NewCoordinator(cfg.id, w.tabs, deps)
	return w
}

// ID returns the window id.
func (w *Window) ID() schema.WindowID {
	return w.id
}

// Loop returns the loop the window runs on.
func (w *Window) Loop() *dispatch.Loop {
	return w.loop
}

// bootstrap materializes the window's first tabs. It runs on the loop.
func (w *Window) bootstrap() {
	if err := w.registry.MarkInUse(w.id); err != nil {
		w.log.Warn("window bootstrap skipped", "err", err)
		return
	}
	for i, seed := range w.seeds {
		w.coord.Adopt(seed, i == 0)
	}
	w.seeds = nil
	if value, ok := w.registry.TakePendingContext(w.id); ok {
		record, err := codec.Deserialize(value)
		if err != nil {
			w.log.Warn("window pending context dropped", "err", err)
		} else {
			w.coord.Adopt(record, true)
			logx.WithRecord(w.log, record).Debug("window pending context adopted")
		}
	}
	w.emit(schema.DesktopEvent{Type: schema.DesktopEventWindowOpened, Window: w.id, Title: w.title})
	w.log.Info("window opened", "title", w.title, "tabs", w.tabs.Len())
	if err := w.registry.MarkUnused(w.ctx, w.id); err != nil {
		w.log.Debug("window mark unused failed", "err", err)
	}
}

func (w *Window) handleMessage(msg schema.Message) {
	logx.WithMessage(w.log, msg).Trace("window message")
	w.coord.HandleMessage(w.ctx, msg)
}

func (w *Window) notify(event schema.DesktopEvent) {
	if event.Type == schema.DesktopEventTabSelected && event.Index >= 0 && event.Title != "" {
		w.title = event.Title
	}
	w.emit(event)
}

// DragStarting implements platform.Surface.
func (w *Window) DragStarting(index int, pkg schema.DataPackage) bool {
	return w.coord.DragStarting(w.ctx, index, pkg) == nil
}

// DragOver implements platform.Surface.
func (w *Window) DragOver(pkg schema.DataPackage) schema.DropResult {
	return w.coord.DragOver(pkg)
}

// Drop implements platform.Surface.
func (w *Window) Drop(pkg schema.DataPackage, x int) {
	w.coord.Drop(w.ctx, pkg, x)
}

// DraggedOutside implements platform.Surface.
func (w *Window) DraggedOutside() {
	_ = w.coord.TabDraggedOutside(w.ctx)
}

// DragCompleted implements platform.Surface.
func (w *Window) DragCompleted(result schema.DropResult) {
	w.coord.DragCompleted(w.ctx, result)
}

// Snapshot implements platform.Surface.
func (w *Window) Snapshot() schema.WindowSnapshot {
	return schema.WindowSnapshot{
		ID:    w.id,
		Title: w.title,
		State: w.coord.State(),
		Tabs:  w.tabs.Snapshot(),
	}
}

func (w *Window) snapshot(ctx context.Context) (schema.WindowSnapshot, error) {
	var snap schema.WindowSnapshot
	if err := w.loop.Do(ctx, func() { snap = w.Snapshot() }); err != nil {
		return schema.WindowSnapshot{}, err
	}
	return snap, nil
}
