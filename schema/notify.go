package schema

// DesktopEventType describes a window or tab change.
type DesktopEventType string

const (
	// DesktopEventWindowOpened indicates a window finished bootstrapping.
	DesktopEventWindowOpened DesktopEventType = "window_opened"
	// DesktopEventWindowRetired indicates a window was removed from the registry.
	DesktopEventWindowRetired DesktopEventType = "window_retired"
	// DesktopEventWindowActivated indicates a window became the foreground view.
	DesktopEventWindowActivated DesktopEventType = "window_activated"
	// DesktopEventTabInserted indicates a tab entered a window's collection.
	DesktopEventTabInserted DesktopEventType = "tab_inserted"
	// DesktopEventTabRemoved indicates a tab left a window's collection.
	DesktopEventTabRemoved DesktopEventType = "tab_removed"
	// DesktopEventTabSelected indicates the selected tab changed.
	DesktopEventTabSelected DesktopEventType = "tab_selected"
	// DesktopEventMessage indicates a custom message was delivered.
	DesktopEventMessage DesktopEventType = "message"
)

// DesktopEvent is emitted by windows for observers such as the HTTP stream.
type DesktopEvent struct {
	Type    DesktopEventType
	Window  WindowID
	Title   string
	Index   int
	Tab     *TabRecord
	Peer    WindowID
	Message *CustomMessage
}
