package concurrency

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidArgument is returned (or carried by a panic) when an operand is
	// not one of the six defined lock types, or a resource name is malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidLockRequest is returned when a lock request would leave the
	// resource hierarchy in a state CanBeParentLock forbids.
	ErrInvalidLockRequest = errors.New("invalid lock request")

	// ErrRedundantLock is returned when an explicit lock request is already
	// implied by a lock held on an ancestor.
	ErrRedundantLock = errors.New("redundant lock request")

	// ErrLockConflict is returned when another transaction holds an
	// incompatible lock on a resource.
	ErrLockConflict = errors.New("lock conflict")

	// Returned when the client has no running transaction.
	ErrNoSuchTransaction = errors.New("no such transaction")
	// Returned by Begin when the client already has a running transaction.
	ErrTransactionExists = errors.New("transaction already began")
)

// invalidLockType builds the error for an operand outside the enumeration.
func invalidLockType(lt LockType) error {
	return errors.Wrapf(ErrInvalidArgument, "bad lock type %d", int(lt))
}

// mustBeValid panics if any of the given lock types is absent or undefined.
// Relations over LockType are total on the six variants only.
func mustBeValid(lts ...LockType) {
	for _, lt := range lts {
		if !lt.Valid() {
			panic(invalidLockType(lt))
		}
	}
}
