package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/tabtear/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Desktop       DesktopConfig `mapstructure:"desktop" yaml:"desktop"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// DesktopConfig controls the window desktop.
type DesktopConfig struct {
	MainTitle    string    `mapstructure:"main_title" yaml:"main_title"`
	SeedTabs     []SeedTab `mapstructure:"seed_tabs" yaml:"seed_tabs"`
	MailboxDepth int       `mapstructure:"mailbox_depth" yaml:"mailbox_depth"`
	TabWidth     int       `mapstructure:"tab_width" yaml:"tab_width"`
	// StateFile persists the tab layout across restarts when set.
	StateFile string `mapstructure:"state_file" yaml:"state_file"`
}

// SeedTab is a tab placed in the main window at start.
type SeedTab struct {
	Title   string `mapstructure:"title" yaml:"title"`
	Content string `mapstructure:"content" yaml:"content"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	BasePath   string `mapstructure:"base_path" yaml:"base_path"`
	HubHistory int    `mapstructure:"hub_history" yaml:"hub_history"`
}

// LoggingConfig controls message logging.
type LoggingConfig struct {
	TraceMessages bool `mapstructure:"trace_messages" yaml:"trace_messages"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Desktop: DesktopConfig{
			MainTitle: schema.DefaultMainTitle,
			SeedTabs: []SeedTab{
				{Title: "Tab 1", Content: "This is tab 1"},
				{Title: "Tab 2", Content: "This is tab 2"},
				{Title: "Tab 3", Content: "This is tab 3"},
			},
			MailboxDepth: schema.DefaultMailboxDepth,
			TabWidth:     schema.DefaultTabWidth,
			StateFile:    "",
		},
		HTTP: HTTPConfig{
			Addr:       ":27490",
			BasePath:   "",
			HubHistory: 1000,
		},
		Logging: LoggingConfig{
			TraceMessages: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabtear", "config.yaml"), nil
}

// DesktopSettings maps the config onto the desktop service config.
func (c Config) DesktopSettings() schema.DesktopConfig {
	seeds := make([]schema.TabRecord, 0, len(c.Desktop.SeedTabs))
	for _, tab := range c.Desktop.SeedTabs {
		seeds = append(seeds, schema.TabRecord{Title: tab.Title, Content: tab.Content})
	}
	return schema.DesktopConfig{
		MainTitle:     c.Desktop.MainTitle,
		SeedTabs:      seeds,
		MailboxDepth:  c.Desktop.MailboxDepth,
		TabWidth:      c.Desktop.TabWidth,
		TraceMessages: c.Logging.TraceMessages,
	}
}
