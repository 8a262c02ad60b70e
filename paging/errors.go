package paging

import "github.com/cockroachdb/errors"

// Error classes. Every error returned by this package that belongs to one of
// these classes is marked with it, so callers match with errors.Is.
var (
	// ErrInvalidArgument reports a caller bug: bad page size, negative count,
	// missing sum field, invalid bias.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidUsage reports an operation that makes no sense in the
	// engine's current state, such as a random pick on a paged view.
	ErrInvalidUsage = errors.New("invalid usage")
	// ErrNotImplemented reports a feature boundary: bias toward the tail, or a
	// source that cannot be addressed by a cache key.
	ErrNotImplemented = errors.New("not implemented")
	// ErrInconsistentSource reports a gap found on a source whose staleness
	// chance is zero. It is never retried or compensated.
	ErrInconsistentSource = errors.New("inconsistent source")
)

func markf(class error, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), class)
}

func invalidArgument(format string, args ...interface{}) error {
	return markf(ErrInvalidArgument, format, args...)
}

func notImplemented(format string, args ...interface{}) error {
	return markf(ErrNotImplemented, format, args...)
}
