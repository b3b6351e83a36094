package schema

import "errors"

// DesktopConfig defines defaults and limits for the window desktop.
type DesktopConfig struct {
	MainTitle string
	SeedTabs  []TabRecord
	// MailboxDepth bounds each window loop queue.
	MailboxDepth int
	// TabWidth is the strip width of one tab used by the headless platform.
	TabWidth int
	// TraceMessages logs every delivered message at debug level.
	TraceMessages bool
}

const (
	// DefaultMailboxDepth is the default per-window loop queue bound.
	DefaultMailboxDepth = 1024
	// DefaultTabWidth is the default headless tab width in pixels.
	DefaultTabWidth = 120
	// DefaultMainTitle is the default main window title.
	DefaultMainTitle = "TabViewTear"
)

// NormalizeDesktopConfig applies defaults and validates the config.
func NormalizeDesktopConfig(cfg DesktopConfig) (DesktopConfig, error) {
	if cfg.MainTitle == "" {
		cfg.MainTitle = DefaultMainTitle
	}
	if cfg.MailboxDepth == 0 {
		cfg.MailboxDepth = DefaultMailboxDepth
	}
	if cfg.TabWidth == 0 {
		cfg.TabWidth = DefaultTabWidth
	}
	if cfg.MailboxDepth < 0 {
		return DesktopConfig{}, errors.New("mailbox depth must be positive")
	}
	if cfg.TabWidth < 0 {
		return DesktopConfig{}, errors.New("tab width must be positive")
	}
	if len(cfg.SeedTabs) > 0 {
		cfg.SeedTabs = append([]TabRecord(nil), cfg.SeedTabs...)
	}
	return cfg, nil
}
