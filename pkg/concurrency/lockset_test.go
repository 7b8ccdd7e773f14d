package concurrency_test

import (
	"testing"

	"mglock/pkg/concurrency"

	"github.com/stretchr/testify/require"
)

func TestLockSet(t *testing.T) {
	t.Run("Basic", testLockSetBasic)
	t.Run("Zero", testLockSetZero)
	t.Run("Intersect", testLockSetIntersect)
	t.Run("DerivedSets", testLockSetDerived)
}

func testLockSetBasic(t *testing.T) {
	ls := concurrency.NewLockSet(X, IS, IS)
	require.Equal(t, 2, ls.Len())
	require.True(t, ls.Contains(IS))
	require.True(t, ls.Contains(X))
	require.False(t, ls.Contains(S))
	require.False(t, ls.Contains(concurrency.LockType(0)))
	require.Equal(t, []concurrency.LockType{IS, X}, ls.Slice())
	require.Equal(t, "{IS, X}", ls.String())
}

func testLockSetZero(t *testing.T) {
	var ls concurrency.LockSet
	require.Equal(t, 0, ls.Len())
	require.False(t, ls.Contains(NL))
	require.Empty(t, ls.Slice())
	require.Equal(t, "{}", ls.String())
	require.True(t, concurrency.NewLockSet(S).IsSuperSet(ls))
	require.False(t, ls.IsSuperSet(concurrency.NewLockSet(S)))
	require.Equal(t, 0, ls.Intersect(concurrency.NewLockSet(S)).Len())
}

func testLockSetIntersect(t *testing.T) {
	a := concurrency.NewLockSet(NL, IS, S, SIX)
	b := concurrency.NewLockSet(IS, IX, SIX, X)
	require.Equal(t, []concurrency.LockType{IS, SIX}, a.Intersect(b).Slice())
	// Operands are left untouched.
	require.Equal(t, 4, a.Len())
	require.Equal(t, 4, b.Len())
	require.True(t, a.IsSuperSet(a.Intersect(b)))
}

func testLockSetDerived(t *testing.T) {
	for _, a := range concurrency.AllLockTypes() {
		for _, b := range concurrency.AllLockTypes() {
			require.Equal(t, concurrency.Compatible(a, b), concurrency.CompatibleWith(a).Contains(b))
			require.Equal(t, concurrency.CanBeParentLock(a, b), concurrency.ChildrenOf(a).Contains(b))
			require.Equal(t, concurrency.Substitutable(a, b), concurrency.Covers(a).Contains(b))
			require.Equal(t, concurrency.Substitutable(b, a), concurrency.SubstitutesFor(a).Contains(b))
		}
	}
	require.Equal(t, "{NL, IS}", concurrency.CompatibleWith(SIX).String())
	require.Equal(t, "{NL, IX, X}", concurrency.ChildrenOf(SIX).String())
	require.Equal(t, "{SIX, X}", concurrency.SubstitutesFor(SIX).String())
}
