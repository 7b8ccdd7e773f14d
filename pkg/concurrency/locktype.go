package concurrency

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// LockType is a lock mode in the multigranularity locking protocol.
// The zero value is not a lock mode; it stands for an absent operand and
// is rejected by every relation below.
type LockType uint8

const (
	NL  LockType = iota + 1 // no lock held
	IS                      // intention shared
	IX                      // intention exclusive
	S                       // shared
	SIX                     // shared intention exclusive
	X                       // exclusive
)

// Number of defined lock types.
const numLockTypes = 6

var lockTypeNames = [numLockTypes]string{"NL", "IS", "IX", "S", "SIX", "X"}

// AllLockTypes returns the six lock types in table order.
func AllLockTypes() []LockType {
	return []LockType{NL, IS, IX, S, SIX, X}
}

// Valid reports whether lt is one of the six defined lock types.
func (lt LockType) Valid() bool {
	return lt >= NL && lt <= X
}

// IsIntent reports whether lt is IS, IX, or SIX.
func (lt LockType) IsIntent() bool {
	mustBeValid(lt)
	return lt == IS || lt == IX || lt == SIX
}

func (lt LockType) String() string {
	if !lt.Valid() {
		return fmt.Sprintf("LockType(%d)", int(lt))
	}
	return lockTypeNames[lt.index()]
}

// index is the row/column of lt in the relation matrices.
func (lt LockType) index() int {
	return int(lt - NL)
}

// ParseLockType parses a lock type name, ignoring case.
func ParseLockType(s string) (LockType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range lockTypeNames {
		if n == name {
			return LockType(i) + NL, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "unknown lock type %q", s)
}

// Validate returns ErrInvalidArgument if any operand is absent or undefined.
// It is the error-returning counterpart of the panics raised by the relations.
func Validate(lts ...LockType) error {
	for _, lt := range lts {
		if !lt.Valid() {
			return invalidLockType(lt)
		}
	}
	return nil
}
