// Package registry tracks the live top-level windows. It is the single
// source of truth for whether a window still exists.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/codec"
	"pkt.systems/tabtear/internal/platform"
	"pkt.systems/tabtear/schema"
)

// MainAlias is told which window currently answers to schema.MainWindow.
type MainAlias interface {
	SetMain(id schema.WindowID)
}

// Deps captures dependencies for the registry.
type Deps struct {
	Platform platform.Windowing
	Main     MainAlias
	Logger   pslog.Logger
}

// Entry is a read-only view of a registry entry.
type Entry struct {
	ID         schema.WindowID
	Title      string
	Liveness   schema.Liveness
	HasPending bool
	Main       bool
	Active     bool
}

type entry struct {
	id            schema.WindowID
	title         string
	liveness      schema.Liveness
	pending       *string
	retirePending bool
}

// Registry tracks live windows and their liveness.
type Registry struct {
	mu        sync.Mutex
	entries   map[schema.WindowID]*entry
	main      schema.WindowID
	active    schema.WindowID
	platform  platform.Windowing
	alias     MainAlias
	released  []func(schema.WindowID)
	activated []func(schema.WindowID)
	log       pslog.Logger
}

// New constructs a Registry.
func New(deps Deps) (*Registry, error) {
	if deps.Platform == nil {
		return nil, errors.New("registry: windowing platform is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Registry{
		entries:  make(map[schema.WindowID]*entry),
		platform: deps.Platform,
		alias:    deps.Main,
		log:      logger,
	}, nil
}

// OnReleased registers fn to run after a window is retired.
func (r *Registry) OnReleased(fn func(id schema.WindowID)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.released = append(r.released, fn)
	r.mu.Unlock()
}

// OnActivated registers fn to run after a window becomes the foreground view.
func (r *Registry) OnActivated(fn func(id schema.WindowID)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.activated = append(r.activated, fn)
	r.mu.Unlock()
}

// RegisterMain records the first window, which the platform created at start.
func (r *Registry) RegisterMain(ctx context.Context, id schema.WindowID, title string) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	r.mu.Lock()
	if r.main.Valid() {
		r.mu.Unlock()
		return schema.ErrMainWindowOpen
	}
	r.entries[id] = &entry{id: id, title: title, liveness: schema.LivenessUnused}
	r.main = id
	r.active = id
	r.mu.Unlock()
	r.setAlias(id)
	r.log.With("window", int(id)).Info("registry main registered", "title", title)
	return nil
}

// CreateStandalone allocates a new top-level window seeded with record and
// returns once the window is addressable. Content materializes
// asynchronously on the new window's loop.
func (r *Registry) CreateStandalone(ctx context.Context, title string, seed schema.TabRecord) (schema.WindowID, error) {
	pending, err := codec.Serialize(seed)
	if err != nil {
		return 0, err
	}
	id, err := r.platform.CreateTopLevelWindow(ctx, title)
	if err != nil {
		r.log.Warn("registry create failed", "title", title, "err", err)
		return 0, err
	}
	log := r.log.With("window", int(id))
	r.mu.Lock()
	r.entries[id] = &entry{id: id, title: title, liveness: schema.LivenessUnused, pending: &pending}
	r.mu.Unlock()
	if err := r.platform.ShowStandalone(ctx, id); err != nil {
		r.mu.Lock()
		delete(r.entries, id)
		r.mu.Unlock()
		_ = r.platform.CloseWindow(ctx, id)
		log.Warn("registry show failed", "err", err)
		return 0, err
	}
	r.mu.Lock()
	if _, ok := r.entries[id]; ok {
		r.active = id
	}
	r.mu.Unlock()
	log.Info("registry window created", "title", title)
	return id, nil
}

// TakePendingContext returns the seed stored for id and clears it.
func (r *Registry) TakePendingContext(id schema.WindowID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	if e == nil || e.pending == nil {
		return "", false
	}
	value := *e.pending
	e.pending = nil
	return value, true
}

// MarkInUse flags id as mid-operation so it is not torn down.
func (r *Registry) MarkInUse(id schema.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	if e == nil {
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	e.liveness = schema.LivenessInUse
	return nil
}

// MarkUnused clears the in-use flag and completes a retire that arrived
// while the window was in use.
func (r *Registry) MarkUnused(ctx context.Context, id schema.WindowID) error {
	r.mu.Lock()
	e := r.entries[id]
	if e == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, id)
	}
	e.liveness = schema.LivenessUnused
	deferred := e.retirePending
	r.mu.Unlock()
	if deferred {
		r.log.With("window", int(id)).Debug("registry deferred retire")
		r.Retire(ctx, id)
	}
	return nil
}

// Retire removes id and closes its window. Retiring an unknown or already
// retired window is a no-op.
func (r *Registry) Retire(ctx context.Context, id schema.WindowID) {
	log := r.log.With("window", int(id))
	r.mu.Lock()
	e := r.entries[id]
	if e == nil {
		r.mu.Unlock()
		log.Debug("registry retire skipped", "reason", "not registered")
		return
	}
	if e.liveness == schema.LivenessInUse {
		e.retirePending = true
		r.mu.Unlock()
		log.Debug("registry retire deferred", "reason", "in use")
		return
	}
	delete(r.entries, id)
	mainChanged := false
	if r.active == id {
		r.active = 0
	}
	if r.main == id {
		r.main = r.promoteLocked()
		mainChanged = true
	}
	main := r.main
	released := append(make([]func(schema.WindowID), 0, len(r.released)), r.released...)
	remaining := len(r.entries)
	r.mu.Unlock()

	if mainChanged {
		r.setAlias(main)
	}
	if err := r.platform.CloseWindow(ctx, id); err != nil {
		log.Warn("registry close failed", "err", err)
	}
	for _, fn := range released {
		fn(id)
	}
	log.Info("registry window retired", "remaining", remaining, "main", int(main))
}

// ActivateAndConsolidate brings target to the foreground and consolidates
// source. If source held the main role, target takes it over.
func (r *Registry) ActivateAndConsolidate(ctx context.Context, target, source schema.WindowID) error {
	r.mu.Lock()
	if r.entries[target] == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, target)
	}
	r.mu.Unlock()
	if err := r.platform.SwitchActiveView(ctx, source, target); err != nil {
		return err
	}
	r.mu.Lock()
	if r.entries[target] == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", schema.ErrWindowNotFound, target)
	}
	r.active = target
	mainChanged := false
	if r.main == source || !r.main.Valid() {
		r.main = target
		mainChanged = true
	}
	activated := append(make([]func(schema.WindowID), 0, len(r.activated)), r.activated...)
	r.mu.Unlock()
	if mainChanged {
		r.setAlias(target)
	}
	for _, fn := range activated {
		fn(target)
	}
	r.log.With("window", int(target)).Info("registry window activated", "consolidated", int(source), "main_changed", mainChanged)
	return nil
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id schema.WindowID) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	if e == nil {
		return Entry{}, false
	}
	return r.viewLocked(e), true
}

// List returns all live entries ordered by id.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, r.viewLocked(e))
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Main returns the window holding the main role, or zero.
func (r *Registry) Main() schema.WindowID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.main
}

// Active returns the foreground window, or zero.
func (r *Registry) Active() schema.WindowID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Registry) viewLocked(e *entry) Entry {
	return Entry{
		ID:         e.id,
		Title:      e.title,
		Liveness:   e.liveness,
		HasPending: e.pending != nil,
		Main:       e.id == r.main,
		Active:     e.id == r.active,
	}
}

// promoteLocked picks the next main window: the active one if any, else the
// oldest live window.
func (r *Registry) promoteLocked() schema.WindowID {
	if r.active.Valid() && r.entries[r.active] != nil {
		return r.active
	}
	var next schema.WindowID
	for id := range r.entries {
		if !next.Valid() || id < next {
			next = id
		}
	}
	return next
}

func (r *Registry) setAlias(id schema.WindowID) {
	if r.alias != nil {
		r.alias.SetMain(id)
	}
}
