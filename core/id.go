package core

import "github.com/google/uuid"

func newDragID() string {
	return uuid.NewString()
}
