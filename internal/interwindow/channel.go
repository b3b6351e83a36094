package interwindow

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/logx"
	"pkt.systems/tabtear/schema"
)

// Handler receives messages addressed to a window. It runs on the window's
// own loop, never concurrently with that window's other work.
type Handler func(msg schema.Message)

// Mailbox is the execution context a subscriber's handler runs on.
type Mailbox interface {
	Post(fn func()) error
}

type subscriber struct {
	mailbox Mailbox
	handler Handler
	token   uint64
}

// Channel routes messages between windows. Delivery is asynchronous,
// at-most-once and ordered per sender/receiver pair.
type Channel struct {
	mu    sync.Mutex
	subs  map[schema.WindowID]subscriber
	main  schema.WindowID
	next  uint64
	log   pslog.Logger
	trace bool
}

// Option configures a Channel.
type Option func(*Channel)

// WithMessageTrace logs every delivered message at debug level.
func WithMessageTrace(enabled bool) Option {
	return func(c *Channel) { c.trace = enabled }
}

// New constructs a Channel.
func New(logger pslog.Logger, opts ...Option) *Channel {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	c := &Channel{
		subs: make(map[schema.WindowID]subscriber),
		log:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers the single handler for id and returns a cancel func.
// A later Subscribe for the same id replaces the earlier one.
func (c *Channel) Subscribe(id schema.WindowID, mailbox Mailbox, handler Handler) func() {
	if c == nil || !id.Valid() || mailbox == nil || handler == nil {
		return func() {}
	}
	c.mu.Lock()
	c.next++
	token := c.next
	_, replaced := c.subs[id]
	c.subs[id] = subscriber{mailbox: mailbox, handler: handler, token: token}
	count := len(c.subs)
	c.mu.Unlock()
	c.log.With("window", int(id)).Debug("interwindow subscribe", "subs", count, "replaced", replaced)
	return func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok && sub.token == token {
			delete(c.subs, id)
		}
		c.mu.Unlock()
		c.log.With("window", int(id)).Debug("interwindow unsubscribe")
	}
}

// SetMain points the schema.MainWindow alias at id.
func (c *Channel) SetMain(id schema.WindowID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	prev := c.main
	c.main = id
	c.mu.Unlock()
	if prev != id {
		c.log.Debug("interwindow main changed", "from", int(prev), "to", int(id))
	}
}

// Main returns the window the schema.MainWindow alias resolves to.
func (c *Channel) Main() schema.WindowID {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main
}

// Send enqueues msg for msg.To without blocking. It returns false when the
// destination is unknown or its mailbox rejected the message; the failure is
// logged, never returned, because the destination may have been retired
// concurrently with the send.
func (c *Channel) Send(ctx context.Context, msg schema.Message) bool {
	if c == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	to := msg.To
	if to == schema.MainWindow {
		to = c.main
	}
	sub, ok := c.subs[to]
	c.mu.Unlock()
	log := logx.WithMessage(logx.WithWindow(ctx, msg.From), msg)
	if !ok {
		log.Warn("interwindow destination unknown", "resolved", int(to))
		return false
	}
	msg.To = to
	err := sub.mailbox.Post(func() {
		if c.trace {
			log.Debug("interwindow deliver")
		}
		sub.handler(msg)
	})
	if err != nil {
		if errors.Is(err, schema.ErrMailboxFull) {
			log.Warn("interwindow dropped", "err", err)
		} else {
			log.Warn("interwindow destination closed", "err", err)
		}
		return false
	}
	log.Debug("interwindow send")
	return true
}

// Subscribed reports whether id currently has a handler.
func (c *Channel) Subscribed(id schema.WindowID) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[id]
	return ok
}
