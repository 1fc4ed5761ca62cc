package cobtree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoBtree(t *testing.T) *CoBtree {
	InitTestLogger(t, "")
	cache := NewCache(1 << 20)
	density := DensityOptions{TauD: 1.0, Tau0: 0.75, Rho0: 0.5, RhoD: 0.25}
	return New("test", 64, 4, Sizing{}, density, cache)
}

func TestCoBtreeInsertAndGet(t *testing.T) {
	cb := newTestCoBtree(t)

	for i := uint64(0); i < 50; i++ {
		require.NoError(t, cb.Insert(i, i*100))
	}

	for i := uint64(0); i < 50; i++ {
		value, found := cb.Get(i)
		require.True(t, found, "key %d", i)
		assert.Equal(t, i*100, value)
	}
}

func TestCoBtreeGetMissingKey(t *testing.T) {
	cb := newTestCoBtree(t)
	require.NoError(t, cb.Insert(10, 1))

	_, found := cb.Get(999)
	assert.False(t, found)
}

func TestCoBtreeUpdateInPlace(t *testing.T) {
	cb := newTestCoBtree(t)

	require.NoError(t, cb.Insert(5, 1))
	require.NoError(t, cb.Insert(5, 2))

	value, found := cb.Get(5)
	require.True(t, found)
	assert.Equal(t, uint64(2), value)
}

func TestCoBtreeRandomInsertOrder(t *testing.T) {
	cb := newTestCoBtree(t)

	rng := rand.New(rand.NewSource(1))
	keys := rng.Perm(80)

	for _, k := range keys {
		require.NoError(t, cb.Insert(uint64(k), uint64(k)+1))
	}
	for _, k := range keys {
		value, found := cb.Get(uint64(k))
		require.True(t, found, "key %d", k)
		assert.Equal(t, uint64(k)+1, value)
	}
}

func TestMergeUpdateContextsOverridesOverlap(t *testing.T) {
	base := &UpdateContext{Updated: []UpdateEntry{{SegmentID: 1, NewCount: 3}, {SegmentID: 3, NewCount: 5}}}
	incoming := &UpdateContext{Updated: []UpdateEntry{{SegmentID: 2, NewCount: 9}, {SegmentID: 3, NewCount: 7}}}

	merged := mergeUpdateContexts(base, incoming)

	require.Len(t, merged.Updated, 3)
	assert.Equal(t, 1, merged.Updated[0].SegmentID)
	assert.Equal(t, 2, merged.Updated[1].SegmentID)
	assert.Equal(t, 3, merged.Updated[2].SegmentID)
	assert.Equal(t, 7, merged.Updated[2].NewCount)
}
