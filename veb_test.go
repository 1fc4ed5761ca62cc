package cobtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *Tree {
	InitTestLogger(t, "")
	cache := NewCache(1 << 20)
	return NewTree("test", 4, 64, 2.0, DensityOptions{TauD: 1.0, Tau0: 0.75, Rho0: 0.5, RhoD: 0.25}, cache)
}

func TestTreeInsertAndGet(t *testing.T) {
	tr := newTestTree(t)

	keys := []uint64{10, 3, 7, 1, 20, 15, 5, 9}
	for i, k := range keys {
		err := tr.Insert(k, uint64(i))
		require.NoError(t, err)
	}

	for i, k := range keys {
		value, _, _ := tr.Get(k)
		assert.Equal(t, uint64(i), value, "key %d", k)
	}
}

func TestTreeUpdateInPlace(t *testing.T) {
	tr := newTestTree(t)

	require.NoError(t, tr.Insert(42, 1))
	require.NoError(t, tr.Insert(42, 2))

	value, _, matchKey := tr.Get(42)
	assert.True(t, matchKey)
	assert.Equal(t, uint64(2), value)
}

func TestLeafIteratorOrder(t *testing.T) {
	tr := newTestTree(t)

	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, tr.Insert(i*10, i))
	}

	it := NewLeafIterator(tr, tr.rootAddr, false)
	var values []uint64
	for it.Next() {
		_, v := it.Leaf()
		values = append(values, v)
	}
	require.Len(t, values, 20)
	for i := 1; i < len(values); i++ {
		assert.LessOrEqual(t, values[i-1], values[i])
	}
}

func TestLeafIteratorFromSeeksAroundLeaf(t *testing.T) {
	tr := newTestTree(t)

	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, tr.Insert(i*10, i))
	}

	leaves := tr.GetLeafAddresses(tr.rootAddr)
	require.Len(t, leaves, 10)
	mid := leaves[5]

	fwd := NewLeafIteratorFrom(tr, tr.rootAddr, mid, false)
	var fwdValues []uint64
	for fwd.Next() {
		_, v := fwd.Leaf()
		fwdValues = append(fwdValues, v)
	}

	back := NewLeafIteratorFrom(tr, tr.rootAddr, mid, true)
	var backValues []uint64
	for back.Next() {
		_, v := back.Leaf()
		backValues = append(backValues, v)
	}

	require.Len(t, fwdValues, 5)
	require.Len(t, backValues, 5)
	assert.Equal(t, uint64(6), fwdValues[0])
	assert.Equal(t, uint64(5), backValues[0])
}

// TestTreeDeepSplitsRelocateSubtrees inserts enough keys that, with a
// fanout of 4, splits happen several levels deep, exercising
// splitNode's subtree relocation path (complexSplit in veb_split.go)
// repeatedly rather than only ever splitting a node of leaves.
func TestTreeDeepSplitsRelocateSubtrees(t *testing.T) {
	tr := newTestTree(t)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(uint64(i), uint64(i)+1))
	}

	for i := 0; i < n; i++ {
		value, _, matchKey := tr.Get(uint64(i))
		require.True(t, matchKey, "key %d", i)
		assert.Equal(t, uint64(i)+1, value)
	}

	it := NewLeafIterator(tr, tr.rootAddr, false)
	var keys []uint64
	for it.Next() {
		addr, _ := it.Leaf()
		keys = append(keys, tr.GetNode(addr).Children[0].Key)
	}
	require.Len(t, keys, n)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}
}

func TestLeafIteratorBackward(t *testing.T) {
	tr := newTestTree(t)

	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, tr.Insert(i, i))
	}

	it := NewLeafIterator(tr, tr.rootAddr, true)
	var values []uint64
	for it.Next() {
		_, v := it.Leaf()
		values = append(values, v)
	}
	require.Len(t, values, 10)
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i-1], values[i])
	}
}
