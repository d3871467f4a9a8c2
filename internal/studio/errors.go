package studio

import (
	"errors"
	"strings"
)

// ErrBusy is returned when a generation is requested while one is running.
var ErrBusy = errors.New("a generation is already running")

// ErrNotFound is returned when an instruction or history ID is unknown.
var ErrNotFound = errors.New("not found")

// ValidationError reports missing inputs at generation time.
type ValidationError struct {
	Missing []Slot
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Missing))
	for i, slot := range e.Missing {
		names[i] = string(slot)
	}
	return "missing required input: " + strings.Join(names, ", ")
}
