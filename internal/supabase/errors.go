package supabase

import (
	"errors"
	"fmt"
)

// ErrEmptyRepresentation is returned when a write asked for the stored row
// back and the backend echoed nothing.
var ErrEmptyRepresentation = errors.New("empty representation returned")

// RequestError is a non-2xx answer from the REST endpoint.
type RequestError struct {
	Op     string
	Status int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s failed (%d)", e.Op, e.Status)
}
