package publish

import (
	"context"

	"github.com/pkg/errors"
)

// SourceError is a failure to read from the packet source, as opposed to a
// network failure. Reconnecting does not help.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return "source: " + e.Err.Error() }
func (e *SourceError) Cause() error  { return e.Err }

type causer interface {
	Cause() error
}

// ShouldRetry reports whether a publish attempt that failed with err is
// worth repeating. Malformed endpoints, unsupported schemes, source errors
// and cancellation are final; network failures are not.
func ShouldRetry(err error) bool {
	for err != nil {
		if _, ok := err.(*SourceError); ok {
			return false
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}

	switch errors.Cause(err) {
	case nil, ErrInvalidEndpoint, ErrUnsupportedScheme, context.Canceled, context.DeadlineExceeded:
		return false
	}
	return true
}
