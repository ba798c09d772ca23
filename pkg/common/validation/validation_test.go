package validation

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/forkflow/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
		{"large positive", 1000000, false},
		{"large negative", -1000000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("test", "count", tt.value)

			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateAtLeast(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		min       int
		wantError bool
	}{
		{"above minimum", 10, 0, false},
		{"equal to minimum", 0, 0, false},
		{"below minimum", -1, 0, true},
		{"negative minimum", -1, -1, false},
		{"below negative minimum", -2, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAtLeast("test", "retries", tt.value, tt.min)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateAtLeast(%d, %d) error = %v, wantError %v", tt.value, tt.min, err, tt.wantError)
			}
		})
	}
}

func TestValidateDurations(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError bool
	}{
		{"positive duration", ValidatePositiveDuration("test", "d", time.Millisecond), false},
		{"zero duration", ValidatePositiveDuration("test", "d", 0), true},
		{"negative duration", ValidatePositiveDuration("test", "d", -time.Second), true},
		{"at least equal", ValidateDurationAtLeast("test", "max", time.Second, time.Second, "min"), false},
		{"at least greater", ValidateDurationAtLeast("test", "max", 2*time.Second, time.Second, "min"), false},
		{"below minimum", ValidateDurationAtLeast("test", "max", time.Millisecond, time.Second, "min"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", tt.err, tt.wantError)
			}
		})
	}
}

func TestValidateNotEmpty(t *testing.T) {
	if err := ValidateNotEmpty("config", "key", "value"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := ValidateNotEmpty("config", "key", ""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestValidateOneOf(t *testing.T) {
	if err := ValidateOneOf("forkjoin", "JoinPolicy", "park", "park", "help"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	err := ValidateOneOf("forkjoin", "JoinPolicy", "spin", "park", "help")
	if !errors.IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "spin") {
		t.Errorf("error %q should mention the rejected value", err.Error())
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidatePositive("forkjoin", "Parallelism", -5)

	var verr *errors.ValidationError
	if !stderrors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Module != "forkjoin" {
		t.Errorf("Module = %q, want forkjoin", verr.Module)
	}
	if verr.Field != "Parallelism" {
		t.Errorf("Field = %q, want Parallelism", verr.Field)
	}
	if verr.Value != -5 {
		t.Errorf("Value = %v, want -5", verr.Value)
	}
	if verr.Hint == "" {
		t.Error("expected a hint")
	}
}

func TestValidationErrorWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ValidatePositive", ValidatePositive("test", "field", -1)},
		{"ValidateAtLeast", ValidateAtLeast("test", "field", -1, 0)},
		{"ValidatePositiveDuration", ValidatePositiveDuration("test", "field", 0)},
		{"ValidateNotEmpty", ValidateNotEmpty("test", "field", "")},
		{"ValidateOneOf", ValidateOneOf("test", "field", 3, 1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !stderrors.Is(tt.err, errors.ErrInvalidConfiguration) {
				t.Errorf("%s should wrap ErrInvalidConfiguration, got %v", tt.name, tt.err)
			}
		})
	}
}
