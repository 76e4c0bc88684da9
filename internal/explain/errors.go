package explain

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the sentinel matched by every caller input mistake.
// Callers test for it with errors.Is; the concrete error is a *ValidationError.
var ErrInvalidArgument = errors.New("explain: invalid argument")

// ValidationError describes which argument was rejected and why
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if ve.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidArgument, ve.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidArgument, ve.Field, ve.Message)
}

// Is reports whether target is ErrInvalidArgument
func (ve *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArgument(field, message string, value interface{}) error {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
