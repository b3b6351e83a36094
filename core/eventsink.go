package core

import "pkt.systems/tabtear/schema"

// EventSink receives window and tab events from the desktop.
type EventSink interface {
	OnDesktopEvent(event schema.DesktopEvent)
}

type nopSink struct{}

func (nopSink) OnDesktopEvent(schema.DesktopEvent) {}
