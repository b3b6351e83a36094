package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidPayload indicates a drag payload that cannot be decoded.
	ErrInvalidPayload = errors.New("invalid drag payload")
	// ErrWindowNotFound indicates a window id that is not live.
	ErrWindowNotFound = errors.New("window not found")
	// ErrTabIndexOutOfRange indicates a tab position outside the collection.
	ErrTabIndexOutOfRange = errors.New("tab index out of range")
	// ErrDragInFlight indicates a second drag-out while one is still in flight.
	ErrDragInFlight = errors.New("drag already in flight")
	// ErrDragRejected indicates the source window refused to start a drag.
	ErrDragRejected = errors.New("drag rejected")
	// ErrNoDrag indicates a drag callback with no drag in flight.
	ErrNoDrag = errors.New("no drag in flight")
	// ErrLoopStopped indicates work posted to a window whose loop has stopped.
	ErrLoopStopped = errors.New("window loop stopped")
	// ErrMailboxFull indicates the window loop queue is at capacity.
	ErrMailboxFull = errors.New("window mailbox full")
	// ErrNoMainWindow indicates the main window has not been opened.
	ErrNoMainWindow = errors.New("main window not open")
	// ErrMainWindowOpen indicates the main window is already open.
	ErrMainWindowOpen = errors.New("main window already open")
)
