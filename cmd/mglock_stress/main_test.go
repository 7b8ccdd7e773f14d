package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineTable(t *testing.T) {
	table, ok := lineTable("lock shop/orders/p1/r1 X")
	require.True(t, ok)
	require.Equal(t, "shop/orders", table.String())

	db, ok := lineTable("lock shop S")
	require.True(t, ok)
	require.Equal(t, "shop", db.String())

	_, ok = lineTable("held")
	require.False(t, ok)
	_, ok = lineTable("transaction begin")
	require.False(t, ok)
	for _, line := range []string{"matrix compatible", "parent S", "intent X", "lock", "lock db//t S"} {
		_, ok = lineTable(line)
		require.False(t, ok, line)
	}

	for _, line := range []string{"unlock shop/orders/p1", "plan shop/orders X", "escalate shop/orders", "conflicts shop/orders/p2/r9 S"} {
		table, ok = lineTable(line)
		require.True(t, ok, line)
		require.Equal(t, "shop/orders", table.String(), line)
	}
}

func TestSplitWorkload(t *testing.T) {
	workload := []string{
		"lock shop/orders/p1/r1 X",
		"lock shop/customers IX",
		"lock shop/orders/p2 S",
		"held",
		"escalate shop/orders",
	}
	shares := splitWorkload(workload, 2, false)
	require.Equal(t, []string{workload[0], workload[2], workload[4]}, shares[0])
	require.Equal(t, []string{workload[1], workload[3]}, shares[1])

	shares = splitWorkload(workload, 3, true)
	total := 0
	for _, share := range shares {
		total += len(share)
		// Every orders line lands in the same share.
		orders := 0
		for _, line := range share {
			if table, ok := lineTable(line); ok && table.String() == "shop/orders" {
				orders++
			}
		}
		require.Contains(t, []int{0, 3}, orders)
	}
	require.Equal(t, len(workload), total)
}
