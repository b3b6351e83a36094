package schema

// TabSnapshot is a read-only view of one tab.
type TabSnapshot struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Selected bool   `json:"selected"`
}

// WindowSnapshot is a read-only view of a window for transports.
type WindowSnapshot struct {
	ID       WindowID      `json:"id"`
	Title    string        `json:"title"`
	Main     bool          `json:"main"`
	Active   bool          `json:"active"`
	Liveness Liveness      `json:"liveness"`
	State    TransferState `json:"state"`
	Tabs     []TabSnapshot `json:"tabs"`
}

// Titles returns the tab titles in order.
func (w WindowSnapshot) Titles() []string {
	out := make([]string, 0, len(w.Tabs))
	for _, tab := range w.Tabs {
		out = append(out, tab.Title)
	}
	return out
}
