package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/tabtear/schema"
)

// WindowLayout captures one window for persistence.
type WindowLayout struct {
	Title    string             `json:"title"`
	Main     bool               `json:"main,omitempty"`
	Selected int                `json:"selected"`
	Tabs     []schema.TabRecord `json:"tabs"`
}

// Layout captures every live window of a desktop.
type Layout struct {
	Windows []WindowLayout `json:"windows"`
}

// LayoutFromSnapshots converts window snapshots into a layout.
func LayoutFromSnapshots(snaps []schema.WindowSnapshot) Layout {
	layout := Layout{Windows: make([]WindowLayout, 0, len(snaps))}
	for _, snap := range snaps {
		w := WindowLayout{Title: snap.Title, Main: snap.Main, Selected: -1, Tabs: make([]schema.TabRecord, 0, len(snap.Tabs))}
		for _, tab := range snap.Tabs {
			if tab.Selected {
				w.Selected = tab.Index
			}
			w.Tabs = append(w.Tabs, schema.TabRecord{Title: tab.Title, Content: tab.Content})
		}
		layout.Windows = append(layout.Windows, w)
	}
	return layout
}

// Seed flattens the layout into the tab list for a fresh main window: the
// main window's tabs first, then every other window's tabs in order.
func (l Layout) Seed() []schema.TabRecord {
	var out []schema.TabRecord
	for _, w := range l.Windows {
		if w.Main {
			out = append(out, w.Tabs...)
		}
	}
	for _, w := range l.Windows {
		if !w.Main {
			out = append(out, w.Tabs...)
		}
	}
	return out
}

// Store persists a desktop layout to a single file.
type Store struct {
	path string
	log  pslog.Logger
}

// NewStore constructs a store writing to path.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger constructs a store with logging.
func NewStoreWithLogger(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state file is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_file", path)
	}
	return &Store{path: path, log: logger}, nil
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the layout from disk.
func (s *Store) Load() (Layout, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("layout load miss")
			}
			return Layout{}, false, nil
		}
		if s.log != nil {
			s.log.Warn("layout load failed", "err", err)
		}
		return Layout{}, false, err
	}
	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		if s.log != nil {
			s.log.Warn("layout load failed", "err", err)
		}
		return Layout{}, false, err
	}
	if s.log != nil {
		s.log.Debug("layout load ok", "windows", len(layout.Windows))
	}
	return layout, true, nil
}

// Save writes the layout atomically.
func (s *Store) Save(layout Layout) error {
	if err := s.save(layout); err != nil {
		if s.log != nil {
			s.log.Warn("layout save failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("layout save ok", "windows", len(layout.Windows))
	}
	return nil
}

func (s *Store) save(layout Layout) error {
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "layout-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
