package model

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded reports more loaded materials than the fixed table
// capacity. It is surfaced before any upload is attempted.
var ErrCapacityExceeded = errors.New("material table capacity exceeded")

// DecodeError reports a texture registry entry that could not be decoded
// during array construction. It is fatal to the whole build, substituting a
// placeholder layer would desynchronize material layer indices.
type DecodeError struct {
	Path  string
	Layer uint32
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding texture %q (layer %d): %v", e.Path, e.Layer, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
