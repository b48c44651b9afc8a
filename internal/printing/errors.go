package printing

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("invalid barcode parameter")

var (
	ErrContentTooLarge             = errors.New("barcode content too large")
	ErrInvalidModuleWidth          = errors.New("module width must be between 2 and 8")
	ErrInvalidRowCount             = errors.New("rows must be 0 (auto) or between 3 and 90")
	ErrInvalidHeightMultiplier     = errors.New("height multiplier must be between 0 and 16")
	ErrInvalidColumnCount          = errors.New("data column count must be between 0 and 30")
	ErrInvalidErrorCorrectionLevel = errors.New("error correction level must be between 1 and 40")
	ErrInvalidOptions              = errors.New("options must be 0 (standard) or 1 (truncated)")
)

// Layout errors.
var (
	ErrInvalidWidth           = errors.New("print width must be positive")
	ErrInvalidPadChar         = errors.New("pad must be a single character")
	ErrContentTooWideForWidth = errors.New("value leaves no room for label in print width")
)

// ErrInvalidEncoding is returned when a barcode payload is not valid UTF-8.
var ErrInvalidEncoding = errors.New("barcode content is not valid utf-8")

var ErrMissingListID = errors.New("barcode requested without list id")

type ValidationError struct {
	Field string
	Value int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s=%d: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IsInputError reports whether err was caused by the caller's input rather than
// by the device or the process.
func IsInputError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidEncoding) ||
		errors.Is(err, ErrMissingListID) ||
		errors.Is(err, ErrInvalidPadChar) ||
		errors.Is(err, ErrContentTooWideForWidth) ||
		errors.Is(err, ErrInvalidWidth)
}
