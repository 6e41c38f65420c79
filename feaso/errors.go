/*
errors.go - Centralized error types for the feasibility engine

PURPOSE:
  The engine itself degrades numerically instead of failing: a zero
  denominator gives a zero ratio, an IRR that does not converge gives zero,
  an item with no span produces no cashflow. Errors exist for the places
  that sit in front of the engine: scenario validation, stores, and the
  analysis layer.

ERROR CATEGORIES:
  1. Validation errors - Malformed scenarios (caller must fix input)
  2. Store errors - Missing sites/scenarios/jobs

SEE ALSO:
  - validate.go: Produces ValidationError
  - store.go: Uses the not-found sentinels
*/
package feaso

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrScenarioNotFound is returned when a referenced scenario doesn't exist.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrSiteNotFound is returned when a referenced site doesn't exist.
	ErrSiteNotFound = errors.New("site not found")

	// ErrJobNotFound is returned when a sensitivity job id is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidScenario wraps every ValidationError.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrCircularConstruction is returned when a construction item is driven
	// by a percentage of the construction total.
	ErrCircularConstruction = errors.New("construction item cannot be a percentage of construction")

	// ErrMissingAcquisition is returned when acquisition terms are absent.
	ErrMissingAcquisition = errors.New("missing acquisition terms")

	// ErrMissingCapitalStack is returned when the capital stack is malformed.
	ErrMissingCapitalStack = errors.New("missing or malformed capital stack")

	// ErrLinkedStrategy is returned when a hold scenario links to something
	// other than a sell scenario.
	ErrLinkedStrategy = errors.New("linked scenario must use the sell strategy")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
	Err     error // optional more specific sentinel
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidScenario, e.Err}
	}
	return []error{ErrInvalidScenario}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidScenario) ||
		errors.Is(err, ErrCircularConstruction) ||
		errors.Is(err, ErrMissingAcquisition) ||
		errors.Is(err, ErrMissingCapitalStack)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScenarioNotFound) ||
		errors.Is(err, ErrSiteNotFound) ||
		errors.Is(err, ErrJobNotFound)
}
