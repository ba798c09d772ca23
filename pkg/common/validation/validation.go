// Package validation provides common validation utilities for the forkflow library.
package validation

import (
	"fmt"
	"time"

	gferrors "github.com/vnykmshr/forkflow/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateAtLeast validates that an integer value is not below min.
func ValidateAtLeast(module, field string, value, min int) error {
	if value < min {
		return gferrors.NewValidationError(module, field, value, fmt.Sprintf("must be at least %d", min)).
			WithHint(fmt.Sprintf("use %d or a larger value", min))
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("use a duration such as 100us or 5ms")
	}
	return nil
}

// ValidateDurationAtLeast validates that value >= min. minField names the
// bound in the error hint.
func ValidateDurationAtLeast(module, field string, value, min time.Duration, minField string) error {
	if value < min {
		return gferrors.NewValidationError(module, field, value, "must not be less than "+minField).
			WithHint("use a value of at least " + min.String())
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return gferrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateOneOf validates that value is one of allowed.
func ValidateOneOf[T comparable](module, field string, value T, allowed ...T) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return gferrors.NewValidationError(module, field, value, "unsupported value")
}
