package schema

import (
	"fmt"
	"strings"
)

// Keys carried in the platform's native drag payload container.
const (
	DataIdentifier = "TabData"
	DataIndex      = "TabIndex"
	DataWindow     = "TabWindow"
)

// DataPackage is the platform drag payload container.
type DataPackage map[string]any

// Has reports whether key is present.
func (p DataPackage) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p[key]
	return ok
}

// TransferEnvelope is a tab in flight between windows. It is built once by the
// source window at drag start and consumed once by the destination at drop.
type TransferEnvelope struct {
	Record         TabRecord
	OriginWindowID WindowID
	// OriginIndex is a position hint for the origin window, not an identity.
	OriginIndex int
}

// DropResult is the operation the platform reports when a drag finishes.
type DropResult string

const (
	// DropNone reports a cancelled drag or a drop no target accepted.
	DropNone DropResult = "none"
	// DropCopy reports a copy.
	DropCopy DropResult = "copy"
	// DropMove reports a move.
	DropMove DropResult = "move"
	// DropLink reports a link.
	DropLink DropResult = "link"
)

// ParseDropResult normalizes a drop result name.
func ParseDropResult(value string) (DropResult, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return DropNone, nil
	case "copy":
		return DropCopy, nil
	case "move":
		return DropMove, nil
	case "link":
		return DropLink, nil
	default:
		return "", fmt.Errorf("%w: unknown drop result %q", ErrInvalidRequest, value)
	}
}
