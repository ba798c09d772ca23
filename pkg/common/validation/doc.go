// Package validation provides common validation utilities for configuration
// parameters across the forkflow library.
//
// Every helper returns a *errors.ValidationError so callers can report the
// offending module, field and value consistently.
package validation
