package ordering

import (
	"errors"
	"fmt"

	"postboard/models"
)

var ErrDuplicateID = errors.New("duplicate id in collection")

// InvalidReorderError reports a reorder that referenced an id outside the
// collection. Drop events are built from the collection's own ids, so this is
// a wiring bug rather than a user error.
type InvalidReorderError struct {
	ID   models.ID
	Role string
}

func (e *InvalidReorderError) Error() string {
	return fmt.Sprintf("invalid reorder: %s id %q is not in the collection", e.Role, e.ID)
}

// IsInvalidReorder reports whether err is or wraps an InvalidReorderError
func IsInvalidReorder(err error) bool {
	var target *InvalidReorderError
	return errors.As(err, &target)
}
