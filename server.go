package tabtear

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/core"
	"pkt.systems/tabtear/httpapi"
	"pkt.systems/tabtear/internal/persist"
	"pkt.systems/tabtear/schema"
)

// Server composes the desktop and its HTTP API.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Desktop schema.DesktopConfig
	HTTP    httpapi.Config
	// StateFile, when set, restores the tab layout at start and saves it at stop.
	StateFile string
}

// ServerDeps captures optional dependencies for the server.
type ServerDeps struct {
	EventSink core.EventSink
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// New constructs a composable tabtear server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP {
		return nil, errors.New("no services enabled")
	}
	normalized, err := schema.NormalizeDesktopConfig(cfg.Desktop)
	if err != nil {
		return nil, err
	}
	cfg.Desktop = normalized
	return &compositeServer{cfg: cfg, deps: deps, options: options}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	deps    ServerDeps
	options serverOptions
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	stack   *Stack
	store   *persist.Store
	started bool
	stopped bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	// The windows outlive ctx until Stop has saved the layout.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	logger := pslog.Ctx(runCtx)
	var hub *httpapi.Hub
	if s.options.enableHTTP {
		hub = httpapi.NewHub(s.cfg.HTTP.HubHistory, logger)
	}
	var sink core.EventSink
	if hub != nil {
		sink = fanout(s.deps.EventSink, hub)
	} else {
		sink = s.deps.EventSink
	}
	var store *persist.Store
	var seed []schema.TabRecord
	if s.cfg.StateFile != "" {
		var err error
		store, seed, err = restoreLayout(s.cfg.StateFile, logger)
		if err != nil {
			s.mu.Unlock()
			cancel()
			return err
		}
	}
	stack, err := NewStack(runCtx, s.cfg.Desktop, StackDeps{EventSink: sink, Logger: logger})
	if err != nil {
		s.mu.Unlock()
		cancel()
		return err
	}
	if _, err := stack.Desktop.OpenMain(runCtx, seed); err != nil {
		s.mu.Unlock()
		stack.Close()
		cancel()
		return err
	}
	s.ctx, s.cancel = runCtx, cancel
	s.errCh = make(chan error, 1)
	s.stack = stack
	s.store = store
	s.logger = logger
	s.started = true
	s.mu.Unlock()

	logger.Info(
		"server start",
		"http", s.options.enableHTTP,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"main_title", s.cfg.Desktop.MainTitle,
		"seed_tabs", len(s.cfg.Desktop.SeedTabs),
		"restored_tabs", len(seed),
	)
	context.AfterFunc(ctx, func() { _ = s.Stop(context.Background()) })
	if s.options.enableHTTP {
		handler := httpapi.NewServer(s.cfg.HTTP, stack.Desktop, stack.Platform, hub).Handler()
		go func() {
			if err := httpapi.ListenAndServe(runCtx, s.cfg.HTTP.Addr, handler); err != nil {
				logger.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

// restoreLayout opens the state file. A nil seed means the configured seed
// tabs are used.
func restoreLayout(path string, logger pslog.Logger) (*persist.Store, []schema.TabRecord, error) {
	store, err := persist.NewStoreWithLogger(path, logger)
	if err != nil {
		return nil, nil, err
	}
	layout, ok, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return store, nil, nil
	}
	seed := layout.Seed()
	if len(seed) == 0 {
		return store, nil, nil
	}
	return store, seed, nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	stopped := s.stopped
	stack := s.stack
	store := s.store
	runCtx := s.ctx
	log := s.logger
	s.stopped = started
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	if !stopped {
		log.Info("server stop requested")
		if stack != nil {
			if store != nil {
				s.saveLayout(runCtx, stack, store, log)
			}
			stack.Close()
			log.Info("server windows closed")
		}
		if cancel != nil {
			cancel()
		}
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-runCtx.Done():
		log.Info("server stopped")
		return nil
	}
}

func (s *compositeServer) saveLayout(ctx context.Context, stack *Stack, store *persist.Store, log pslog.Logger) {
	snaps, err := stack.Desktop.Windows(ctx)
	if err != nil {
		log.Warn("layout snapshot failed", "err", err)
		return
	}
	if err := store.Save(persist.LayoutFromSnapshots(snaps)); err != nil {
		return
	}
	log.Info("layout saved", "windows", len(snaps))
}

// Desktop returns the running desktop, or nil before Start.
func (s *compositeServer) Desktop() *core.Desktop {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stack == nil {
		return nil
	}
	return s.stack.Desktop
}
