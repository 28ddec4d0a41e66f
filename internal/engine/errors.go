package engine

import "fmt"

// Errors are terminal for the calculation or run they occur in: the engine
// never retries and never returns a partial result. Each error carries
// enough context (activity id, EF key, field name) for the API layer to
// render an actionable message.

// MissingInputError reports a required input field absent from an activity's
// inputs. The required-field check runs before any derivation strategy.
type MissingInputError struct {
	EFKey string
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input %q for EF %q", e.Field, e.EFKey)
}

// InvalidInputError reports an input field that exists but cannot be used as
// a number.
type InvalidInputError struct {
	EFKey  string
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q for EF %q: %s", e.Field, e.EFKey, e.Reason)
}

// NoQuantityDerivationError reports that no derivation strategy applied to
// an activity's inputs.
type NoQuantityDerivationError struct {
	EFKey string
}

func (e *NoQuantityDerivationError) Error() string {
	return fmt.Sprintf("no quantity derivation possible for EF %q", e.EFKey)
}

// EmissionFactorNotFoundError reports an activity referencing an unknown
// emission-factor key.
type EmissionFactorNotFoundError struct {
	Key string
}

func (e *EmissionFactorNotFoundError) Error() string {
	return fmt.Sprintf("emission factor not found: %q", e.Key)
}

// ActivityNotFoundError aborts a run on the first missing activity id; a run
// is all-or-nothing.
type ActivityNotFoundError struct {
	ID int64
}

func (e *ActivityNotFoundError) Error() string {
	return fmt.Sprintf("activity not found: %d", e.ID)
}
