package notes

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Resolve when no note matches.
	ErrNotFound = errors.New("note not found")
	// ErrAmbiguous is returned by Resolve when a prefix matches several notes.
	ErrAmbiguous = errors.New("ambiguous note id")
)

// PersistenceError reports that the note collection could not be read from
// or written to the backing store. When returned from Create or Delete the
// in-memory collection has been left as it was before the call.
type PersistenceError struct {
	Op  string // "load" or "save"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s notes (key %q): %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
