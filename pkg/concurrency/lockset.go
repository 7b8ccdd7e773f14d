package concurrency

import (
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
)

// LockSet is an immutable set of lock types.
type LockSet struct {
	bits *bitset.BitSet
}

// NewLockSet returns the set holding the given lock types.
func NewLockSet(lts ...LockType) LockSet {
	mustBeValid(lts...)
	bits := bitset.New(numLockTypes)
	for _, lt := range lts {
		bits.Set(uint(lt.index()))
	}
	return LockSet{bits: bits}
}

// setOf collects the lock types whose column in row is true.
func setOf(row [numLockTypes]bool) LockSet {
	bits := bitset.New(numLockTypes)
	for i, ok := range row {
		if ok {
			bits.Set(uint(i))
		}
	}
	return LockSet{bits: bits}
}

// Derived sets, computed once from the relation matrices.
var (
	compatibleSets [numLockTypes]LockSet // compatibleSets[a]: every b with Compatible(a, b)
	childSets      [numLockTypes]LockSet // childSets[p]: every c with CanBeParentLock(p, c)
	coveredSets    [numLockTypes]LockSet // coveredSets[s]: every r with Substitutable(s, r)
	substituteSets [numLockTypes]LockSet // substituteSets[r]: every s with Substitutable(s, r)
)

func init() {
	for i := 0; i < numLockTypes; i++ {
		compatibleSets[i] = setOf(compatibility[i])
		childSets[i] = setOf(childOf[i])
		coveredSets[i] = setOf(substitutes[i])

		var column [numLockTypes]bool
		for s := 0; s < numLockTypes; s++ {
			column[s] = substitutes[s][i]
		}
		substituteSets[i] = setOf(column)
	}
}

// Contains reports whether lt is in the set.
func (ls LockSet) Contains(lt LockType) bool {
	if ls.bits == nil || !lt.Valid() {
		return false
	}
	return ls.bits.Test(uint(lt.index()))
}

// Len returns the number of lock types in the set.
func (ls LockSet) Len() int {
	if ls.bits == nil {
		return 0
	}
	return int(ls.bits.Count())
}

// Slice returns the members in table order.
func (ls LockSet) Slice() []LockType {
	out := make([]LockType, 0, ls.Len())
	if ls.bits == nil {
		return out
	}
	for i, ok := ls.bits.NextSet(0); ok; i, ok = ls.bits.NextSet(i + 1) {
		out = append(out, LockType(i)+NL)
	}
	return out
}

// Intersect returns the lock types present in both sets.
func (ls LockSet) Intersect(other LockSet) LockSet {
	if ls.bits == nil || other.bits == nil {
		return LockSet{bits: bitset.New(numLockTypes)}
	}
	return LockSet{bits: ls.bits.Intersection(other.bits)}
}

// IsSuperSet reports whether every member of other is in ls.
func (ls LockSet) IsSuperSet(other LockSet) bool {
	if other.Len() == 0 {
		return true
	}
	if ls.bits == nil {
		return false
	}
	return ls.bits.IsSuperSet(other.bits)
}

func (ls LockSet) String() string {
	names := make([]string, 0, ls.Len())
	for _, lt := range ls.Slice() {
		names = append(names, lt.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// CompatibleWith returns every lock type another transaction may hold
// alongside a.
func CompatibleWith(a LockType) LockSet {
	mustBeValid(a)
	return compatibleSets[a.index()]
}

// ChildrenOf returns every lock type a descendant may hold under parent.
func ChildrenOf(parent LockType) LockSet {
	mustBeValid(parent)
	return childSets[parent.index()]
}

// Covers returns every lock type whose requirements substitute satisfies.
func Covers(substitute LockType) LockSet {
	mustBeValid(substitute)
	return coveredSets[substitute.index()]
}

// SubstitutesFor returns every lock type that may stand in for required.
func SubstitutesFor(required LockType) LockSet {
	mustBeValid(required)
	return substituteSets[required.index()]
}

// Promote returns the weakest lock type that substitutes for both held and
// want. A lock manager upgrading held to satisfy want acquires this mode;
// for example S and IX promote to SIX.
func Promote(held, want LockType) LockType {
	mustBeValid(held, want)
	candidates := substituteSets[held.index()].Intersect(substituteSets[want.index()])
	for _, c := range candidates.Slice() {
		// The least candidate is the one every other candidate stands in for.
		if substituteSets[c.index()].IsSuperSet(candidates) {
			return c
		}
	}
	// X substitutes for everything, so a least candidate always exists.
	panic(errors.AssertionFailedf("no promotion of %s to %s", held, want))
}
