package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/schema"
)

type contextKey int

const windowKey contextKey = iota

// WithWindow annotates the logger with the window id if present.
func WithWindow(ctx context.Context, id schema.WindowID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id.Valid() {
		if current, ok := ctx.Value(windowKey).(schema.WindowID); ok && current == id {
			return log
		}
		log = log.With("window", int(id))
	}
	return log
}

// WithDrag annotates the logger with the drag identifier if set.
func WithDrag(log pslog.Logger, dragID string) pslog.Logger {
	if dragID == "" {
		return log
	}
	return log.With("drag", dragID)
}

// WithRecord annotates the logger with tab record metadata.
func WithRecord(log pslog.Logger, record schema.TabRecord) pslog.Logger {
	if record.Title != "" {
		log = log.With("tab_title", record.Title)
	}
	return log.With("tab_len", len(record.Content))
}

// WithMessage annotates the logger with message routing fields.
func WithMessage(log pslog.Logger, msg schema.Message) pslog.Logger {
	return log.With("msg_kind", string(msg.Kind), "msg_from", int(msg.From), "msg_to", int(msg.To))
}

// ContextWithWindow stores the window marker on the context for log de-duplication.
func ContextWithWindow(ctx context.Context, id schema.WindowID) context.Context {
	if ctx == nil || !id.Valid() {
		return ctx
	}
	return context.WithValue(ctx, windowKey, id)
}

// ContextWithWindowLogger attaches the logger and window marker to the context.
func ContextWithWindowLogger(ctx context.Context, log pslog.Logger, id schema.WindowID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithWindow(ctx, id)
}
