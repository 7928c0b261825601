package markov

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrInvalidOrder is returned when a model or table is requested with an order below 1.
	ErrInvalidOrder = errors.New("order must be at least 1")
	// ErrInvalidToken is returned when a token is empty or contains whitespace.
	ErrInvalidToken = errors.New("invalid token")
	// ErrOrderMismatch is returned when a loaded table was built with a different order
	// than the model it is loaded into.
	ErrOrderMismatch = errors.New("table order does not match model order")
	// ErrInvalidSnapshot is returned when a persisted snapshot cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrBuilderDone is returned when a TableBuilder is used after Table was called.
	ErrBuilderDone = errors.New("table builder already finished")
)

// ModelNotFoundError reports that no persisted table exists under a name.
// It matches fs.ErrNotExist with errors.Is.
type ModelNotFoundError struct {
	Name string
	Err  error
}

func (e *ModelNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %q not found: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("model %q not found", e.Name)
}

func (e *ModelNotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return fs.ErrNotExist
}

// Is makes every ModelNotFoundError match fs.ErrNotExist, whatever the backend error.
func (e *ModelNotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// NoStartStateError reports that a table holds no usable starting n-gram.
type NoStartStateError struct {
	Order int
	Start string
}

func (e *NoStartStateError) Error() string {
	return fmt.Sprintf("no start state beginning with %q in order-%d table", e.Start, e.Order)
}

// IsModelNotFound reports whether err is, or wraps, a ModelNotFoundError.
func IsModelNotFound(err error) bool {
	var nf *ModelNotFoundError
	return errors.As(err, &nf)
}

// IsNoStartState reports whether err is, or wraps, a NoStartStateError.
func IsNoStartState(err error) bool {
	var ns *NoStartStateError
	return errors.As(err, &ns)
}
