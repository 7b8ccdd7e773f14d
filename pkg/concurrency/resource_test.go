package concurrency_test

import (
	"testing"

	"mglock/pkg/concurrency"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestResource(t *testing.T) {
	t.Run("Parse", testResourceParse)
	t.Run("Invalid", testResourceInvalid)
	t.Run("Hierarchy", testResourceHierarchy)
	t.Run("Hash", testResourceHash)
}

func testResourceParse(t *testing.T) {
	r, err := concurrency.ParseResource("db/orders/page7/rec42")
	require.NoError(t, err)
	require.Equal(t, "db/orders/page7/rec42", r.String())
	require.Equal(t, []string{"db", "orders", "page7", "rec42"}, r.Names())
	require.Equal(t, "rec42", r.Name())
	require.Equal(t, 4, r.Depth())
	require.Equal(t, "record", r.Level())

	same, err := concurrency.NewResource("db", "orders", "page7", "rec42")
	require.NoError(t, err)
	require.Equal(t, r, same)

	db := mustResource(t, "db")
	require.Equal(t, "database", db.Level())
	require.Equal(t, "db", db.Name())

	var zero concurrency.Resource
	require.True(t, zero.IsZero())
	require.Equal(t, 0, zero.Depth())
	require.Equal(t, "", zero.Level())
	require.Nil(t, zero.Names())
}

func testResourceInvalid(t *testing.T) {
	for _, s := range []string{"", "db//t", "/db", "db/t/", "a/b/c/d/e", "db/a b"} {
		_, err := concurrency.ParseResource(s)
		require.Truef(t, errors.Is(err, concurrency.ErrInvalidArgument), "%q: %v", s, err)
	}
	_, err := concurrency.NewResource()
	require.True(t, errors.Is(err, concurrency.ErrInvalidArgument), err)

	rec := mustResource(t, "db/t/p/r")
	_, err = rec.Child("deeper")
	require.True(t, errors.Is(err, concurrency.ErrInvalidArgument), err)
}

func testResourceHierarchy(t *testing.T) {
	db := mustResource(t, "db")
	table := mustResource(t, "db/t")
	page := mustResource(t, "db/t/p")
	rec := mustResource(t, "db/t/p/r")

	parent, ok := rec.Parent()
	require.True(t, ok)
	require.Equal(t, page, parent)
	_, ok = db.Parent()
	require.False(t, ok)

	require.Equal(t, []concurrency.Resource{db, table, page}, rec.Ancestors())
	require.Empty(t, db.Ancestors())

	child, err := table.Child("p")
	require.NoError(t, err)
	require.Equal(t, page, child)

	require.True(t, rec.IsDescendantOf(db))
	require.True(t, rec.IsDescendantOf(table))
	require.False(t, table.IsDescendantOf(table))
	require.False(t, table.IsDescendantOf(rec))
	// A shared name prefix is not ancestry.
	require.False(t, mustResource(t, "db/tt").IsDescendantOf(table))
	require.False(t, table.IsDescendantOf(concurrency.Resource{}))
}

func testResourceHash(t *testing.T) {
	a := mustResource(t, "db/t")
	b, err := concurrency.NewResource("db", "t")
	require.NoError(t, err)
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Hash(), mustResource(t, "db/u").Hash())
}
