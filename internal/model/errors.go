package model

import (
	"errors"
	"fmt"
)

// ErrConfig marks degenerate parameters or malformed inputs: missing columns,
// non-positive lengths or windows, warm-up that consumes every row.
// These are surfaced to the caller and never silently corrected.
var ErrConfig = errors.New("configuration error")

// ConfigErrorf returns an error wrapping ErrConfig.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
