package appconfig

import (
	"testing"

	"pkt.systems/tabtear/schema"
)

func TestDefaultConfigMatchesDesktopDefaults(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Desktop.TabWidth != schema.DefaultTabWidth || cfg.Desktop.MailboxDepth != schema.DefaultMailboxDepth {
		t.Fatalf("unexpected desktop defaults: %+v", cfg.Desktop)
	}
	if cfg.Logging.TraceMessages {
		t.Fatalf("expected message tracing to default false")
	}
}
