package concurrency

// Relation matrices, indexed by LockType.index() in the order
// NL, IS, IX, S, SIX, X. These tables are the whole of the protocol's
// correctness; every other decision in this package is derived from them.

// compatibility[a][b] is true iff one transaction may hold a while another
// holds b on the same resource. The matrix is symmetric.
var compatibility = [numLockTypes][numLockTypes]bool{
	// columns: NL, IS, IX, S, SIX, X
	/* NL  */ {true, true, true, true, true, true},
	/* IS  */ {true, true, true, true, true, false},
	/* IX  */ {true, true, true, false, false, false},
	/* S   */ {true, true, false, true, false, false},
	/* SIX */ {true, true, false, false, false, false},
	/* X   */ {true, false, false, false, false, false},
}

// parentOf[a] is the minimum lock needed on the parent to lock a child with a.
var parentOf = [numLockTypes]LockType{
	/* NL  */ NL,
	/* IS  */ IS,
	/* IX  */ IX,
	/* S   */ IS,
	/* SIX */ IX,
	/* X   */ IX,
}

// childOf[parent][child] is true iff a resource locked with parent may have a
// descendant locked with child.
var childOf = [numLockTypes][numLockTypes]bool{
	// columns: NL, IS, IX, S, SIX, X
	/* NL  */ {true, false, false, false, false, false},
	/* IS  */ {true, true, false, true, false, false},
	/* IX  */ {true, true, true, true, true, true},
	/* S   */ {true, false, false, false, false, false},
	/* SIX */ {true, false, true, false, false, true},
	/* X   */ {true, false, false, false, false, false},
}

// substitutes[sub][req] is true iff holding sub satisfies a requirement for req.
// Not symmetric: X substitutes for SIX but SIX does not substitute for X.
var substitutes = [numLockTypes][numLockTypes]bool{
	// columns: NL, IS, IX, S, SIX, X
	/* NL  */ {true, false, false, false, false, false},
	/* IS  */ {true, true, false, false, false, false},
	/* IX  */ {true, true, true, false, false, false},
	/* S   */ {true, true, false, true, false, false},
	/* SIX */ {true, true, true, true, true, false},
	/* X   */ {true, true, true, true, true, true},
}

// Compatible reports whether a transaction may hold a on a resource while a
// different transaction holds b on the same resource.
// It panics with ErrInvalidArgument if either operand is not a defined lock type.
func Compatible(a, b LockType) bool {
	mustBeValid(a, b)
	return compatibility[a.index()][b.index()]
}

// ParentLock returns the lock that must be held on the parent resource for a
// lock of type a to be granted on the child.
func ParentLock(a LockType) LockType {
	mustBeValid(a)
	return parentOf[a.index()]
}

// CanBeParentLock reports whether a resource locked with parent may have a
// descendant locked with child. Non-intent parents (NL, S, X) only admit NL.
func CanBeParentLock(parent, child LockType) bool {
	mustBeValid(parent, child)
	return childOf[parent.index()][child.index()]
}

// Substitutable reports whether holding substitute satisfies every
// requirement that holding required would, e.g. an X lock may be used where
// an S lock is required. NL substitutes only for NL.
func Substitutable(substitute, required LockType) bool {
	mustBeValid(substitute, required)
	return substitutes[substitute.index()][required.index()]
}
