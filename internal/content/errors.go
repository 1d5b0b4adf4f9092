package content

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the content source has no entity matching a query.
var ErrNotFound = errors.New("content not found")

// FetchError wraps a transport, status or decoding failure talking to the
// content source. It never means the entity is absent.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("content %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("content %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a fetch failure rather than absence.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
