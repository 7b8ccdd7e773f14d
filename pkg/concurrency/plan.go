package concurrency

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
)

// LockHolder is a read-only view of the locks one transaction holds.
type LockHolder interface {
	// HeldLock returns the lock explicitly held on r, or NL.
	HeldLock(r Resource) LockType
	// HeldLocks returns every explicitly held non-NL lock.
	HeldLocks() map[Resource]LockType
}

// A Step is one change a transaction makes to its held locks: acquiring a
// fresh lock (From == NL), promoting an existing one, or releasing a lock
// made redundant by a stronger one above it (To == NL).
type Step struct {
	Resource Resource
	From     LockType
	To       LockType
}

// IsPromotion reports whether the step strengthens an existing lock.
func (s Step) IsPromotion() bool {
	return s.From != NL && s.To != NL
}

// IsRelease reports whether the step drops a lock.
func (s Step) IsRelease() bool {
	return s.To == NL
}

func (s Step) String() string {
	switch {
	case s.IsRelease():
		return fmt.Sprintf("release %s %s", s.Resource, s.From)
	case s.IsPromotion():
		return fmt.Sprintf("promote %s %s->%s", s.Resource, s.From, s.To)
	default:
		return fmt.Sprintf("acquire %s %s", s.Resource, s.To)
	}
}

// impliedBelow returns the lock that holding lt implies on every descendant,
// or NL if it implies none.
func impliedBelow(lt LockType) LockType {
	switch lt {
	case X:
		return X
	case S, SIX:
		return S
	default:
		return NL
	}
}

// EffectiveLock returns the strongest lock h holds on r, counting locks
// implied by ancestors: X on an ancestor implies X, S or SIX implies S.
func EffectiveLock(h LockHolder, r Resource) LockType {
	effective := h.HeldLock(r)
	for _, a := range r.Ancestors() {
		effective = Promote(effective, impliedBelow(h.HeldLock(a)))
	}
	return effective
}

// PlanAcquire returns the steps, root first, that leave h holding a lock on
// target at least as strong as want. Ancestors get the intent locks
// ParentLock demands and existing locks are promoted rather than replaced.
// Locks on descendants of target that the new lock implies are released
// after the acquisitions. An empty plan means want is already effectively
// held.
func PlanAcquire(h LockHolder, target Resource, want LockType) ([]Step, error) {
	if err := Validate(want); err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, errors.Wrap(ErrInvalidArgument, "empty resource")
	}
	if Substitutable(EffectiveLock(h, target), want) {
		return nil, nil
	}

	path := append(target.Ancestors(), target)
	// need[i] is the weakest lock path[i] must hold, computed leaf to root.
	need := make([]LockType, len(path))
	need[len(path)-1] = want
	for i := len(path) - 2; i >= 0; i-- {
		need[i] = ParentLock(need[i+1])
	}

	var steps []Step
	resulting := make([]LockType, len(path))
	for i, r := range path {
		held := h.HeldLock(r)
		resulting[i] = held
		if !Substitutable(held, need[i]) {
			resulting[i] = Promote(held, need[i])
			steps = append(steps, Step{Resource: r, From: held, To: resulting[i]})
		}
		if i > 0 && !CanBeParentLock(resulting[i-1], resulting[i]) {
			return nil, errors.Wrapf(ErrInvalidLockRequest,
				"%s on %s under %s on %s", resulting[i], r, resulting[i-1], path[i-1])
		}
	}

	final := resulting[len(resulting)-1]
	implied := impliedBelow(final)
	var releases []Step
	for d, lt := range h.HeldLocks() {
		if lt == NL || !d.IsDescendantOf(target) {
			continue
		}
		if Substitutable(implied, lt) {
			releases = append(releases, Step{Resource: d, From: lt, To: NL})
			continue
		}
		if p, _ := d.Parent(); p == target && !CanBeParentLock(final, lt) {
			return nil, errors.Wrapf(ErrInvalidLockRequest,
				"%s on %s would sit under %s on %s", lt, d, final, target)
		}
	}
	sort.Slice(releases, func(i, j int) bool {
		return releases[i].Resource.String() < releases[j].Resource.String()
	})
	return append(steps, releases...), nil
}

// CheckRequest validates an explicit request for child on a resource whose
// parent is held with parentHeld. S or IS beneath SIX is redundant, since SIX
// already grants shared access to the whole subtree.
func CheckRequest(parentHeld, child LockType) error {
	if err := Validate(parentHeld, child); err != nil {
		return err
	}
	if CanBeParentLock(parentHeld, child) {
		return nil
	}
	if parentHeld == SIX && (child == S || child == IS) {
		return errors.Wrapf(ErrRedundantLock, "%s under %s", child, parentHeld)
	}
	return errors.Wrapf(ErrInvalidLockRequest, "%s under %s", child, parentHeld)
}

// CheckRelease returns an error if releasing r would orphan a lock still held
// on one of its descendants.
func CheckRelease(h LockHolder, r Resource) error {
	if h.HeldLock(r) == NL {
		return errors.Wrapf(ErrInvalidLockRequest, "no lock held on %s", r)
	}
	for d, lt := range h.HeldLocks() {
		if lt != NL && d.IsDescendantOf(r) {
			return errors.Wrapf(ErrInvalidLockRequest,
				"cannot release %s while %s holds %s", r, d, lt)
		}
	}
	return nil
}

// EscalationTarget returns the single lock that covers every mode in modes
// once finer-grained locks are collapsed into it: NL if nothing is held, S
// if only shared access was announced, X otherwise.
func EscalationTarget(modes []LockType) LockType {
	target := NL
	for _, m := range modes {
		mustBeValid(m)
		switch {
		case m == NL:
		case Substitutable(S, m):
			// IS and S are announcements or grants of shared access only.
			target = Promote(target, S)
		case m.IsIntent() || m == X:
			return X
		}
	}
	return target
}

// PlanEscalation computes how to replace the locks h holds on r and its
// descendants with one lock on r. It returns that lock and the descendants
// whose locks are released, in path order.
func PlanEscalation(h LockHolder, r Resource) (LockType, []Resource, error) {
	held := h.HeldLock(r)
	if held == NL {
		return NL, nil, errors.Wrapf(ErrInvalidLockRequest, "no lock held on %s", r)
	}
	modes := []LockType{held}
	var released []Resource
	for d, lt := range h.HeldLocks() {
		if lt != NL && d.IsDescendantOf(r) {
			modes = append(modes, lt)
			released = append(released, d)
		}
	}
	sort.Slice(released, func(i, j int) bool {
		return released[i].String() < released[j].String()
	})
	return EscalationTarget(modes), released, nil
}
