package database

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error code raised when a unique index rejects a write.
const uniqueViolationCode = "23505"

// UniqueViolation describes a unique-constraint rejection in terms callers
// can map back to the offending business field, instead of string-matching
// driver messages.
type UniqueViolation struct {
	Constraint string
}

// ViolatedConstraint returns the name of the unique constraint that rejected
// the write, if err represents one. The second result reports whether err was
// a unique violation at all.
func ViolatedConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
		return pqErr.Constraint, true
	}
	var uv *UniqueViolation
	if errors.As(err, &uv) {
		return uv.Constraint, true
	}
	return "", false
}

// Error implements the error interface for in-memory stores and tests that
// need to simulate constraint enforcement.
func (v *UniqueViolation) Error() string {
	return "unique constraint violated: " + v.Constraint
}
