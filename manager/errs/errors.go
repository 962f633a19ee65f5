package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// PolicyError is a user reportable refusal. Kind is one of the domain
// sentinel errors, so errors.Is matches on it.
type PolicyError struct {
	Kind    error
	Message string
}

func (e *PolicyError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *PolicyError) Unwrap() error {
	return e.Kind
}

func NewPolicyError(kind error, format string, args ...any) *PolicyError {
	return &PolicyError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func IsPolicyError(err error) (*PolicyError, bool) {
	if err == nil {
		return nil, false
	}
	var policyErr *PolicyError
	if errors.As(err, &policyErr) {
		return policyErr, true
	}
	return nil, false
}
