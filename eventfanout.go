package tabtear

import (
	"pkt.systems/tabtear/core"
	"pkt.systems/tabtear/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnDesktopEvent(event schema.DesktopEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnDesktopEvent(event)
	}
}

func fanout(sinks ...core.EventSink) core.EventSink {
	live := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			live = append(live, sink)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	default:
		return eventFanout{sinks: live}
	}
}
