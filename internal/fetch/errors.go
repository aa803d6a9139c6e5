package fetch

import (
	"context"
	"errors"
	"fmt"
)

// NetworkError is a transport-level failure during a network fetch. Retry is
// the caller's responsibility.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// SizeMismatchError reports that the downloaded byte count disagrees with
// the length declared by the transport. The temp file has been discarded.
type SizeMismatchError struct {
	Want int64
	Got  int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: expected %d bytes, wrote %d", e.Want, e.Got)
}

// FileSystemError is a copy/decode/write/rename failure in any strategy. No
// partial output is left in the final cache namespace.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// Cancelled reports whether err is a cancellation. Cancellation is never a
// user-visible failure: a superseded or torn-down task stops producing
// callbacks instead of reporting an error.
func Cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
