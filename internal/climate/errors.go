package climate

import "errors"

// ErrOutOfRange is returned when a reading falls outside the physical range
// the formula is defined for.
var ErrOutOfRange = errors.New("climate: reading out of range")
