package feed

import (
	"errors"
	"fmt"
)

// DecodeError reports a malformed payload. Records yielded before the error
// remain valid.
type DecodeError struct {
	Format string // "xml", "json", "text" or "payload"
	Offset int64  // byte offset into the body, when known
	Line   int    // 1-based line, XML only
	Column int    // 1-based column, XML only
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("decode %s at line %d column %d: %v", e.Format, e.Line, e.Column, e.Err)
	case e.Offset > 0:
		return fmt.Sprintf("decode %s at offset %d: %v", e.Format, e.Offset, e.Err)
	default:
		return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
