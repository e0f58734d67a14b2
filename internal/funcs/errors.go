package funcs

import (
	"errors"
	"fmt"
)

// UnsupportedFunctionError reports a (name, arity) pair that is not in the
// registry. It is raised at construction time and at compile time and is
// never suppressed.
type UnsupportedFunctionError struct {
	Name  string
	Arity int
}

func (e *UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("unsupported function %s with %d argument(s)", e.Name, e.Arity)
}

// IsUnsupportedFunction returns true if err is or wraps an
// UnsupportedFunctionError.
func IsUnsupportedFunction(err error) bool {
	var ue *UnsupportedFunctionError
	return errors.As(err, &ue)
}
