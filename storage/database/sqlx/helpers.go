package sqlxrepos

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// uniqueViolation reports whether err is a postgres unique constraint
// violation on the named constraint.
func uniqueViolation(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}
