package schema

// WindowID identifies a top-level window. IDs are issued by the windowing
// platform and are never reused within a process.
type WindowID int

// MainWindow addresses whichever window currently holds the main role.
const MainWindow WindowID = 0

// Valid reports whether the id refers to a concrete window.
func (id WindowID) Valid() bool {
	return id > 0
}

// TabRecord describes the content of one tab.
type TabRecord struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Liveness tracks whether a registry entry is mid-operation.
type Liveness string

const (
	// LivenessUnused means the window may be torn down.
	LivenessUnused Liveness = "unused"
	// LivenessInUse means the window is materializing content and must not be torn down yet.
	LivenessInUse Liveness = "in_use"
)

// TransferState is the per-window transfer coordinator state.
type TransferState string

const (
	// TransferIdle means no drag is in flight from this window.
	TransferIdle TransferState = "idle"
	// TransferDragPending means a drag-out started and the platform drag is in flight.
	TransferDragPending TransferState = "drag_pending"
	// TransferAwaitingCompletion means the destination confirmed receipt and the
	// platform has not yet reported the gesture finished.
	TransferAwaitingCompletion TransferState = "awaiting_completion"
)
