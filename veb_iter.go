package cobtree

// LeafIterator walks a Tree's leaves in key order, supplementing the
// point Get/Insert operations with the range scans a CoBtree layer
// needs to rebuild L2 after an insert touches multiple leaves
// (grounded on the forward/backward traversal in the reference
// implementation's vebtree.cc, generalized here into a single
// direction-agnostic cursor).
type LeafIterator struct {
	t        *Tree
	leaves   []uint64
	pos      int
	backward bool
}

// NewLeafIterator returns an iterator over every leaf under
// subtreeRootAddr, left to right. Pass backward=true to walk right to
// left instead.
func NewLeafIterator(t *Tree, subtreeRootAddr uint64, backward bool) *LeafIterator {
	return NewLeafIteratorFrom(t, subtreeRootAddr, NilAddr, backward)
}

// NewLeafIteratorFrom returns an iterator over the leaves under
// subtreeRootAddr starting at fromLeafAddr: forward, the first Next()
// lands on fromLeafAddr itself; backward, the first Next() lands on
// the leaf immediately before it, so a forward and a backward cursor
// seeded from the same leaf never both visit it. fromLeafAddr==NilAddr
// starts from the outer end instead, giving the whole-subtree walk
// NewLeafIterator performs (spec §4.3's L1Update, grounded on
// original_source/src/cobtree.cc's vEBTreeForwardIterator /
// vEBTreeBackwardIterator).
func NewLeafIteratorFrom(t *Tree, subtreeRootAddr, fromLeafAddr uint64, backward bool) *LeafIterator {
	leaves := t.GetLeafAddresses(subtreeRootAddr)
	it := &LeafIterator{t: t, leaves: leaves, backward: backward}

	idx := len(leaves)
	if fromLeafAddr != NilAddr {
		for i, a := range leaves {
			if a == fromLeafAddr {
				idx = i
				break
			}
		}
	}

	if backward {
		if fromLeafAddr == NilAddr {
			it.pos = len(leaves)
		} else {
			it.pos = idx
		}
	} else {
		if fromLeafAddr == NilAddr {
			it.pos = -1
		} else {
			it.pos = idx - 1
		}
	}
	return it
}

// Next advances the iterator and reports whether a leaf is available.
func (it *LeafIterator) Next() bool {
	if it.backward {
		it.pos--
		return it.pos >= 0
	}
	it.pos++
	return it.pos < len(it.leaves)
}

// Leaf returns the current leaf's address and stored value.
func (it *LeafIterator) Leaf() (addr, value uint64) {
	invariant(it.pos >= 0 && it.pos < len(it.leaves), "iterator not positioned on a leaf")
	addr = it.leaves[it.pos]
	value = it.t.GetNode(addr).Children[0].Addr
	return addr, value
}
