// Package platform declares the contracts between the tab transfer core and
// the windowing platform that hosts it.
package platform

import (
	"context"

	"pkt.systems/tabtear/internal/dispatch"
	"pkt.systems/tabtear/schema"
)

// Windowing creates, shows, closes and switches top-level windows.
type Windowing interface {
	// CreateTopLevelWindow constructs an addressable window without starting
	// its content.
	CreateTopLevelWindow(ctx context.Context, title string) (schema.WindowID, error)
	// ShowStandalone launches the window's content on its own loop and shows
	// it. It does not wait for the content to materialize.
	ShowStandalone(ctx context.Context, id schema.WindowID) error
	// CloseWindow closes a window. Closing an unknown window is a no-op.
	CloseWindow(ctx context.Context, id schema.WindowID) error
	// SwitchActiveView brings to to the foreground and consolidates from,
	// closing its view without prompting.
	SwitchActiveView(ctx context.Context, from, to schema.WindowID) error
}

// Surface is the drag-and-drop face of a window's content. The platform
// invokes every method on the window's own loop.
type Surface interface {
	// DragStarting fills pkg for a drag of the tab at index. It returns
	// false when the drag must not start.
	DragStarting(index int, pkg schema.DataPackage) bool
	// DragOver reports the operation a hovering payload would get.
	DragOver(pkg schema.DataPackage) schema.DropResult
	// Drop delivers a payload at pointer x in the window's strip coordinates.
	Drop(pkg schema.DataPackage, x int)
	// DraggedOutside reports the in-flight tab was released outside every window.
	DraggedOutside()
	// DragCompleted reports the final result of the gesture, exactly once per drag.
	DragCompleted(result schema.DropResult)
	// Snapshot returns a read-only view of the window.
	Snapshot() schema.WindowSnapshot
}

// Strip reports the geometry of a window's tab strip.
type Strip interface {
	// TabExtent returns the left edge and width of the tab at index.
	TabExtent(index int) (left, width int)
}

// LaunchRequest carries what window content needs from its host window.
type LaunchRequest struct {
	ID    schema.WindowID
	Title string
	Loop  *dispatch.Loop
	Strip Strip
}

// Launcher builds window content for a platform window.
type Launcher interface {
	// Launch constructs the content for req.ID, bound to req.Loop. Bootstrap
	// work must be posted to the loop rather than run inline.
	Launch(ctx context.Context, req LaunchRequest) (Surface, error)
	// ClosedByUser reports a user-initiated window close.
	ClosedByUser(ctx context.Context, id schema.WindowID)
}
