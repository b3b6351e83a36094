package schema

import (
	"errors"
	"testing"
)

func TestParseDropResult(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  DropResult
		valid bool
	}{
		{"empty", "", DropNone, true},
		{"none", "none", DropNone, true},
		{"move", "move", DropMove, true},
		{"move-upper", " Move ", DropMove, true},
		{"copy", "copy", DropCopy, true},
		{"link", "link", DropLink, true},
		{"unknown", "teleport", "", false},
	}

	for _, tc := range cases {
		got, err := ParseDropResult(tc.value)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid {
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("case %q expected ErrInvalidRequest, got %v", tc.name, err)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("case %q expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestDataPackageHas(t *testing.T) {
	var empty DataPackage
	if empty.Has(DataIdentifier) {
		t.Fatalf("nil package should not report keys")
	}
	pkg := DataPackage{DataIdentifier: "{}"}
	if !pkg.Has(DataIdentifier) || pkg.Has(DataIndex) {
		t.Fatalf("unexpected key presence: %+v", pkg)
	}
}

func TestNormalizeDesktopConfigDefaults(t *testing.T) {
	cfg, err := NormalizeDesktopConfig(DesktopConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.MainTitle != DefaultMainTitle || cfg.MailboxDepth != DefaultMailboxDepth || cfg.TabWidth != DefaultTabWidth {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := NormalizeDesktopConfig(DesktopConfig{MailboxDepth: -1}); err == nil {
		t.Fatalf("expected error for negative mailbox depth")
	}
}

func TestNewCloseMessage(t *testing.T) {
	msg := NewCloseMessage(2, 1, 3)
	if msg.Kind != MessageClose || msg.Close == nil || msg.Close.Index != 3 {
		t.Fatalf("unexpected close message: %+v", msg)
	}
	if msg.Custom != nil {
		t.Fatalf("close message should not carry custom payload")
	}
	if !msg.From.Valid() || MainWindow.Valid() {
		t.Fatalf("unexpected window id validity")
	}
}
