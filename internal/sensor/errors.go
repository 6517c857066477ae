package sensor

import (
	"errors"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// Update errors. Callers match with errors.Is; none of them is fatal.
var (
	// ErrMissingData means a source entity does not exist or has no reading.
	// The previous value is kept.
	ErrMissingData = errors.New("sensor: source data missing")

	// ErrOutOfRange means a source reading is outside the physical range.
	// The previous value is kept.
	ErrOutOfRange = climate.ErrOutOfRange

	// ErrParse means a source reading is not a number. The value is reset.
	ErrParse = errors.New("sensor: source value not numeric")
)
