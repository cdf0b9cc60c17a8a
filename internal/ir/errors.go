package ir

import (
	"errors"
	"fmt"
)

// ErrPositionTaken is wrapped by stores that refuse an element whose
// (author, author_seq) is already held by a different element.
var ErrPositionTaken = errors.New("chain position already taken")

// StorageError reports that the record store could not serve a call.
// It means the operation could not be evaluated at all and is never a
// substitute for a rejection verdict.
type StorageError struct {
	Op      string  // "resolve" or "append"
	Address Address // Address involved, if any
	Err     error
}

func (e *StorageError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Address, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError returns true if err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
