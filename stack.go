package tabtear

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/core"
	"pkt.systems/tabtear/internal/eventbus"
	"pkt.systems/tabtear/internal/headless"
	"pkt.systems/tabtear/internal/interwindow"
	"pkt.systems/tabtear/internal/registry"
	"pkt.systems/tabtear/schema"
)

// Stack is a fully wired desktop running on the headless platform.
type Stack struct {
	Desktop  *core.Desktop
	Platform *headless.Platform
	Registry *registry.Registry
	Channel  *interwindow.Channel
	Events   *eventbus.Bus
}

// StackDeps captures optional dependencies for a stack.
type StackDeps struct {
	EventSink core.EventSink
	Logger    pslog.Logger
}

// NewStack wires the channel, registry, platform and desktop together. The
// window loops run until ctx ends or Close is called.
func NewStack(ctx context.Context, cfg schema.DesktopConfig, deps StackDeps) (*Stack, error) {
	normalized, err := schema.NormalizeDesktopConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	plat := headless.New(ctx, headless.Options{
		TabWidth:     normalized.TabWidth,
		MailboxDepth: normalized.MailboxDepth,
		Logger:       logger,
	})
	channel := interwindow.New(logger, interwindow.WithMessageTrace(normalized.TraceMessages))
	reg, err := registry.New(registry.Deps{Platform: plat, Main: channel, Logger: logger})
	if err != nil {
		return nil, err
	}
	bus := eventbus.New(logger)
	desk, err := core.NewDesktop(normalized, core.DesktopDeps{
		Windowing: plat,
		Registry:  reg,
		Channel:   channel,
		EventSink: fanout(deps.EventSink, bus),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	plat.SetLauncher(desk)
	return &Stack{Desktop: desk, Platform: plat, Registry: reg, Channel: channel, Events: bus}, nil
}

// Close stops every window loop.
func (s *Stack) Close() {
	if s == nil || s.Platform == nil {
		return
	}
	s.Platform.Shutdown()
}
