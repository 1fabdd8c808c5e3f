package todo

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError reports that no item carries the requested id so HTTP
// handlers can respond with 404.
type NotFoundError struct {
	ID uuid.UUID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ID)
}

// IsNotFound helps callers distinguish missing items from infrastructure failures.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// InvalidArgumentError carries the offending field and the rule it violated.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInvalidArgument reports whether err is a constraint violation the
// caller should surface as a bad request rather than a server fault.
func IsInvalidArgument(err error) bool {
	var ia InvalidArgumentError
	return errors.As(err, &ia)
}
