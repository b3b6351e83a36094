package core

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/codec"
	"pkt.systems/tabtear/internal/logx"
	"pkt.systems/tabtear/internal/platform"
	"pkt.systems/tabtear/schema"
)

// CoordinatorDeps captures what a coordinator needs from its window.
type CoordinatorDeps struct {
	Registry WindowRegistry
	Sender   MessageSender
	Strip    platform.Strip
	Notify   func(schema.DesktopEvent)
	Logger   pslog.Logger
}

// Coordinator drives the drag-out and drop side of tab transfers for one
// window. All methods must run on the owning window's loop.
type Coordinator struct {
	id       schema.WindowID
	tabs     *TabCollection
	registry WindowRegistry
	sender   MessageSender
	strip    platform.Strip
	notify   func(schema.DesktopEvent)
	log      pslog.Logger

	state      schema.TransferState
	dragID     string
	dragRecord *schema.TabRecord
	pending    *schema.Message
	tornOut    bool
	inUse      bool
}

// NewCoordinator builds a coordinator for window id over tabs. The logger is
// expected to carry the window field already.
func NewCoordinator(id schema.WindowID, tabs *TabCollection, deps CoordinatorDeps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	notify := deps.Notify
	if notify == nil {
		notify = func(schema.DesktopEvent) {}
	}
	return &Coordinator{
		id:       id,
		tabs:     tabs,
		registry: deps.Registry,
		sender:   deps.Sender,
		strip:    deps.Strip,
		notify:   notify,
		log:      logger,
		state:    schema.TransferIdle,
	}
}

// State returns the current transfer state.
func (c *Coordinator) State() schema.TransferState {
	return c.state
}

// DragStarting fills pkg with the envelope for the tab at index and moves
// to DragPending. Only one drag may be in flight per window.
func (c *Coordinator) DragStarting(ctx context.Context, index int, pkg schema.DataPackage) error {
	if c.state != schema.TransferIdle {
		c.log.Warn("transfer drag rejected", "index", index, "state", string(c.state), "drag", c.dragID)
		return schema.ErrDragInFlight
	}
	record, err := c.tabs.At(index)
	if err != nil {
		c.log.Warn("transfer drag rejected", "index", index, "err", err)
		return err
	}
	if c.pending != nil {
		c.log.Warn("transfer stale close discarded", "msg_from", int(c.pending.From), "close_index", c.pending.Close.Index)
		c.pending = nil
	}
	env := schema.TransferEnvelope{Record: *record, OriginWindowID: c.id, OriginIndex: index}
	if err := codec.EncodeEnvelope(env, pkg); err != nil {
		c.log.Warn("transfer drag encode failed", "index", index, "err", err)
		return err
	}
	c.dragID = newDragID()
	c.dragRecord = record
	c.tornOut = false
	c.state = schema.TransferDragPending
	if c.registry != nil {
		if err := c.registry.MarkInUse(c.id); err != nil {
			c.log.Debug("transfer mark in use failed", "err", err)
		} else {
			c.inUse = true
		}
	}
	c.dragLog().Info("transfer drag started", "index", index, "tabs", c.tabs.Len())
	return nil
}

// TabDraggedOutside tears the dragged tab out into a new standalone window.
// The source removes the tab right away; if that empties the window, the
// new window takes over and this one is retired once the drag completes.
func (c *Coordinator) TabDraggedOutside(ctx context.Context) error {
	if c.state != schema.TransferDragPending || c.dragRecord == nil {
		c.log.Warn("transfer tear-out ignored", "state", string(c.state))
		return schema.ErrNoDrag
	}
	log := c.dragLog()
	record := c.dragRecord
	index := c.tabs.IndexOf(record)
	if index < 0 {
		log.Warn("transfer tear-out ignored", "reason", "tab gone")
		return schema.ErrNoDrag
	}
	newID, err := c.registry.CreateStandalone(ctx, record.Title, *record)
	if err != nil {
		log.Warn("transfer tear-out failed", "err", err)
		return err
	}
	c.removeAt(index)
	c.dragRecord = nil
	c.tornOut = true
	log.Info("transfer tab torn out", "index", index, "new_window", int(newID), "tabs", c.tabs.Len())
	if c.tabs.Len() == 0 {
		c.consolidate(ctx, newID)
	}
	return nil
}

// HandleMessage processes a message delivered to this window.
func (c *Coordinator) HandleMessage(ctx context.Context, msg schema.Message) {
	switch msg.Kind {
	case schema.MessageClose:
		if msg.Close == nil {
			c.log.Warn("transfer close ignored", "reason", "missing payload", "msg_from", int(msg.From))
			return
		}
		if c.pending != nil {
			c.log.Warn("transfer pending close replaced", "msg_from", int(c.pending.From))
		}
		stored := msg
		c.pending = &stored
		if c.state == schema.TransferDragPending {
			c.state = schema.TransferAwaitingCompletion
		}
		c.dragLog().Debug("transfer close received", "msg_from", int(msg.From), "close_index", msg.Close.Index, "state", string(c.state))
	case schema.MessageCustom:
		if msg.Custom == nil {
			return
		}
		custom := *msg.Custom
		c.notify(schema.DesktopEvent{Type: schema.DesktopEventMessage, Window: c.id, Peer: msg.From, Message: &custom})
		c.log.Debug("transfer custom message", "msg_from", int(msg.From), "tag", custom.Tag)
	default:
		c.log.Warn("transfer message ignored", "msg_kind", string(msg.Kind), "msg_from", int(msg.From))
	}
}

// DragCompleted applies the platform's final drag result. A Move with a
// received Close removes the dragged tab; anything else leaves the
// collection untouched.
func (c *Coordinator) DragCompleted(ctx context.Context, result schema.DropResult) {
	log := c.dragLog()
	pending := c.pending
	c.pending = nil
	defer c.finishDrag(ctx)

	if c.state == schema.TransferIdle && pending == nil {
		log.Debug("transfer completion ignored", "result", string(result), "err", schema.ErrNoDrag)
		return
	}
	if result != schema.DropMove || c.tornOut {
		if pending != nil {
			log.Debug("transfer close discarded", "result", string(result), "torn_out", c.tornOut)
		}
		log.Info("transfer drag finished", "result", string(result), "torn_out", c.tornOut)
		return
	}
	if pending == nil {
		log.Warn("transfer move without close", "reason", "close not received")
		return
	}
	index, ok := c.removeDragged(pending)
	if !ok {
		log.Warn("transfer removal skipped", "close_index", pending.Close.Index, "tabs", c.tabs.Len())
		return
	}
	log.Info("transfer tab moved", "index", index, "to", int(pending.From), "tabs", c.tabs.Len())
	if c.tabs.Len() == 0 {
		c.consolidate(ctx, pending.From)
	}
}

// DragOver accepts payloads that carry a tab.
func (c *Coordinator) DragOver(pkg schema.DataPackage) schema.DropResult {
	if pkg.Has(schema.DataIdentifier) {
		return schema.DropMove
	}
	return schema.DropNone
}

// Drop inserts the dropped tab near x and asks the origin to close its copy.
// Undecodable payloads are ignored.
func (c *Coordinator) Drop(ctx context.Context, pkg schema.DataPackage, x int) {
	env, err := codec.DecodeEnvelope(pkg)
	if err != nil {
		c.log.Debug("transfer drop ignored", "err", err)
		return
	}
	record := env.Record
	index := c.insertAndSelect(c.dropIndex(x), &record)
	log := c.log.With("origin", int(env.OriginWindowID))
	log.Info("transfer tab dropped", "index", index, "origin_index", env.OriginIndex, "tabs", c.tabs.Len())
	if c.sender == nil {
		return
	}
	if !c.sender.Send(ctx, schema.NewCloseMessage(c.id, env.OriginWindowID, env.OriginIndex)) {
		log.Warn("transfer close not delivered", "origin_index", env.OriginIndex)
	}
}

// Adopt appends record without a transfer, as when seeding a window.
func (c *Coordinator) Adopt(record schema.TabRecord, selectIt bool) int {
	r := record
	if selectIt {
		return c.insertAndSelect(c.tabs.Len(), &r)
	}
	index := c.tabs.Append(&r)
	c.notifyInserted(index, &r)
	return index
}

// Select changes the selected tab.
func (c *Coordinator) Select(index int) error {
	if err := c.tabs.Select(index); err != nil {
		return err
	}
	c.notifySelected()
	return nil
}

// removeDragged removes the tracked drag record by identity, falling back to
// the Close index only when no drag is tracked.
func (c *Coordinator) removeDragged(pending *schema.Message) (int, bool) {
	if c.dragRecord != nil {
		record := c.dragRecord
		index, ok := c.tabs.Remove(record)
		if ok {
			c.notifyRemoved(index, record)
		}
		return index, ok
	}
	index := pending.Close.Index
	if index < 0 || index >= c.tabs.Len() {
		return index, false
	}
	c.removeAt(index)
	return index, true
}

func (c *Coordinator) dropIndex(x int) int {
	if c.strip == nil {
		return c.tabs.Len()
	}
	for i := 0; i < c.tabs.Len(); i++ {
		left, width := c.strip.TabExtent(i)
		if x-left-width < 0 {
			return i
		}
	}
	return c.tabs.Len()
}

func (c *Coordinator) consolidate(ctx context.Context, target schema.WindowID) {
	if err := c.registry.ActivateAndConsolidate(ctx, target, c.id); err != nil {
		c.log.Warn("transfer consolidate failed", "target", int(target), "err", err)
	}
	c.registry.Retire(ctx, c.id)
}

func (c *Coordinator) finishDrag(ctx context.Context) {
	c.state = schema.TransferIdle
	c.dragID = ""
	c.dragRecord = nil
	c.tornOut = false
	if c.inUse {
		c.inUse = false
		if err := c.registry.MarkUnused(ctx, c.id); err != nil {
			c.log.Debug("transfer mark unused failed", "err", err)
		}
	}
}

func (c *Coordinator) insertAndSelect(index int, record *schema.TabRecord) int {
	index = c.tabs.Insert(index, record)
	_ = c.tabs.Select(index)
	c.notifyInserted(index, record)
	c.notifySelected()
	return index
}

func (c *Coordinator) removeAt(index int) {
	record, err := c.tabs.RemoveAt(index)
	if err != nil {
		c.log.Warn("transfer remove failed", "index", index, "err", err)
		return
	}
	c.notifyRemoved(index, record)
}

func (c *Coordinator) notifyRemoved(index int, record *schema.TabRecord) {
	tab := *record
	c.notify(schema.DesktopEvent{Type: schema.DesktopEventTabRemoved, Window: c.id, Index: index, Title: tab.Title, Tab: &tab})
	c.notifySelected()
}

func (c *Coordinator) notifyInserted(index int, record *schema.TabRecord) {
	tab := *record
	c.notify(schema.DesktopEvent{Type: schema.DesktopEventTabInserted, Window: c.id, Index: index, Title: tab.Title, Tab: &tab})
}

func (c *Coordinator) notifySelected() {
	selected := c.tabs.Selected()
	if selected < 0 {
		c.notify(schema.DesktopEvent{Type: schema.DesktopEventTabSelected, Window: c.id, Index: -1})
		return
	}
	record, err := c.tabs.At(selected)
	if err != nil {
		return
	}
	c.notify(schema.DesktopEvent{Type: schema.DesktopEventTabSelected, Window: c.id, Index: selected, Title: record.Title})
}

func (c *Coordinator) dragLog() pslog.Logger {
	return logx.WithDrag(c.log, c.dragID)
}
