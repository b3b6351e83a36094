package core

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/internal/interwindow"
	"pkt.systems/tabtear/internal/platform"
	"pkt.systems/tabtear/internal/registry"
	"pkt.systems/tabtear/schema"
)

// WindowRegistry is the subset of the registry a window coordinator uses.
type WindowRegistry interface {
	CreateStandalone(ctx context.Context, title string, seed schema.TabRecord) (schema.WindowID, error)
	MarkInUse(id schema.WindowID) error
	MarkUnused(ctx context.Context, id schema.WindowID) error
	Retire(ctx context.Context, id schema.WindowID)
	ActivateAndConsolidate(ctx context.Context, target, source schema.WindowID) error
	TakePendingContext(id schema.WindowID) (string, bool)
}

// DesktopRegistry extends WindowRegistry with the process-wide view.
type DesktopRegistry interface {
	WindowRegistry
	RegisterMain(ctx context.Context, id schema.WindowID, title string) error
	Lookup(id schema.WindowID) (registry.Entry, bool)
	List() []registry.Entry
	Main() schema.WindowID
	OnReleased(fn func(id schema.WindowID))
	OnActivated(fn func(id schema.WindowID))
}

// MessageSender posts messages between windows.
type MessageSender interface {
	Send(ctx context.Context, msg schema.Message) bool
}

// MessageChannel is the inter-window channel as seen by the desktop.
type MessageChannel interface {
	MessageSender
	Subscribe(id schema.WindowID, mailbox interwindow.Mailbox, handler interwindow.Handler) func()
}

// DesktopDeps captures dependencies for the desktop service.
type DesktopDeps struct {
	Windowing platform.Windowing
	Registry  DesktopRegistry
	Channel   MessageChannel
	EventSink EventSink
	Logger    pslog.Logger
}
