package jwt

import (
	apperrors "github.com/kbukum/jwtauth/errors"
)

// Validator applies constraints to a token in the order given. It holds no
// state and is safe for concurrent use.
//
// The validator never adds a signature check of its own: a constraint list
// without SignedWith accepts forged tokens, and an empty list accepts every
// token.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator { return &Validator{} }

// Validate reports whether every constraint holds. It stops at the first
// failure.
func (v *Validator) Validate(token *Token, constraints ...Constraint) bool {
	return v.Assert(token, constraints...) == nil
}

// Assert returns the first failing constraint's error. Failures that are not
// already typed are reported as ConstraintViolation naming the constraint.
func (v *Validator) Assert(token *Token, constraints ...Constraint) error {
	for _, c := range constraints {
		if err := check(c, token); err != nil {
			return err
		}
	}
	return nil
}

// Violations evaluates every constraint and returns all failures.
func (v *Validator) Violations(token *Token, constraints ...Constraint) []error {
	var violations []error
	for _, c := range constraints {
		if err := check(c, token); err != nil {
			violations = append(violations, err)
		}
	}
	return violations
}

func check(c Constraint, token *Token) error {
	err := c.Assert(token)
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.ConstraintViolation(constraintName(c), err.Error()).WithCause(err)
}
