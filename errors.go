package cobtree

import (
	"tlog.app/go/errors"
)

// ErrFull is returned when a PMA's whole-device density is exceeded.
// Reallocation is out of scope (spec §9); callers must not retry the
// same structure after seeing it.
var ErrFull = errors.New("structure full")

// invariant panics with a located error if cond is false. These guard
// programmer errors (bad insert position, malformed update log,
// out-of-range address) and are never recovered.
func invariant(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	panic(errors.New(format, args...))
}
