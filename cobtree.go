package cobtree

// Sizing carries the three layers' independent redundancy factors
// (spec §3): R1 for the vEB tree's node PMA, R2 for the L2 separator
// PMA, R3 for the L3 record PMA.
type Sizing struct {
	R1, R2, R3 float64
}

func (s Sizing) withDefaults() Sizing {
	if s.R1 == 0 {
		s.R1 = 2.0
	}
	if s.R2 == 0 {
		s.R2 = 2.0
	}
	if s.R3 == 0 {
		s.R3 = 2.0
	}
	return s
}

// CoBtree composes a van Emde Boas layout tree (L1) over a PMA of
// separator entries (L2) over a PMA of records (L3), the three-layer
// cache-oblivious index spec §3 and §4.3 describe. Grounded on
// original_source/src/cobtree.cc's CoBtree.
type CoBtree struct {
	tree *Tree
	l2   *PMA
	l3   *PMA

	fanout  int
	density DensityOptions
}

// New creates an empty CoBtree sized for roughly estRecords records,
// with internal nodes of fanout children.
func New(idPrefix string, estRecords, fanout int, sizing Sizing, density DensityOptions, cache *Cache) *CoBtree {
	sizing = sizing.withDefaults()

	if estRecords < 2 {
		estRecords = 2
	}

	l3 := NewPMA(idPrefix+".l3", l3RecordSize, estRecords, sizing.R3, density, cache)

	estL2 := l3.SegmentCount()
	if estL2 < 2 {
		estL2 = 2
	}
	l2 := NewPMA(idPrefix+".l2", l2EntrySize, estL2, sizing.R2, density, cache)

	estLeaves := l2.SegmentCount()
	if estLeaves < 2 {
		estLeaves = 2
	}
	tree := NewTree(idPrefix, fanout, estLeaves, sizing.R1, density, cache)

	cb := &CoBtree{tree: tree, l2: l2, l3: l3, fanout: fanout, density: density}
	cb.seed()

	tl.V("cobtree").Printf("new cobtree %q: l3 segs=%d l2 segs=%d leaves cap=%d", idPrefix, l3.SegmentCount(), l2.SegmentCount(), estLeaves)

	return cb
}

// seed places one L2 entry covering every key and pointing at L3
// segment 0, and points the tree's single leaf at L2 segment 0, so
// Get/Insert have a structure to descend into before anything has
// been inserted.
func (cb *CoBtree) seed() {
	buf := make([]byte, l2EntrySize)
	encodeL2Entry(l2Entry{Key: NilAddr, L3Segment: 0}, buf)

	_, err := cb.l2.Add(buf, 0, cb.l2.SegmentSize()-1)
	invariant(err == nil, "failed to seed L2 layer: %v", err)

	root := cb.tree.GetNode(cb.tree.rootAddr)
	root.Children[0] = NodeEntry{Key: NilAddr, Addr: 0}
	cb.tree.putNode(cb.tree.rootAddr, root)
}

// Get returns the value stored under key, if any.
func (cb *CoBtree) Get(key uint64) (value uint64, found bool) {
	l2SegID, _, _ := cb.tree.Get(key)
	l3SegID, _ := l2Lookup(cb.l2, int(l2SegID), key)

	slot, keyEqual := l3Lookup(cb.l3, int(l3SegID), key)
	if !keyEqual {
		return 0, false
	}

	seg := cb.l3.Get(int(l3SegID))
	return decodeL3Record(cb.l3.itemAt(seg.Buf, slot)).Value, true
}

// Insert adds key->value, or updates value in place if key already
// has a record, propagating the change up through L2 and L1 only as
// far as a PMA rebalance actually reached (spec §4.3).
func (cb *CoBtree) Insert(key, value uint64) error {
	l2SegID, leafAddr, _ := cb.tree.Get(key)
	l3SegID, l2Pos := l2Lookup(cb.l2, int(l2SegID), key)

	l3Seg := cb.l3.Get(int(l3SegID))
	slot, keyEqual := l3Lookup(cb.l3, int(l3SegID), key)
	if keyEqual {
		encodeL3Record(l3Record{Key: key, Value: value}, cb.l3.itemAt(l3Seg.Buf, slot))
		return nil
	}

	buf := make([]byte, l3RecordSize)
	encodeL3Record(l3Record{Key: key, Value: value}, buf)

	l3Ctx, err := cb.l3.Add(buf, int(l3SegID), slot)
	if err != nil {
		return err
	}
	tl.V("insert").Printf("l3 add key=%d seg=%d pos=%d touched=%d", key, l3SegID, slot, len(l3Ctx.Updated))
	if l3Ctx.empty() {
		return nil
	}

	l2Ctx, err := cb.l2Update(int(l2SegID), int(l3SegID), l2Pos, l3Ctx)
	if err != nil {
		return err
	}
	if l2Ctx.empty() {
		return nil
	}

	return cb.l1Update(leafAddr, int(l2SegID), l2Ctx)
}
