package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an update or delete of an id that is not saved.
	ErrNotFound = errors.New("memory not found")
	// ErrMalformedInput reports a request that cannot be applied as given.
	ErrMalformedInput = errors.New("malformed input")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// recoverInto converts a panic in a coordinator operation into an error so
// that no failure crosses the operation boundary.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("internal error: %v", r)
	}
}
