package cobtree

// mergeUpdateContexts folds incoming into base, keeping base's entries
// for segments incoming doesn't mention and letting incoming override
// where both touch the same segment. Both slices are assumed sorted
// ascending by SegmentID, the order every PMA.Add in this package
// produces. Grounded on original_source/src/cobtree.cc's
// MergeSegmentUpdateInfo (spec §4.3 "Supplemented feature").
func mergeUpdateContexts(base, incoming *UpdateContext) *UpdateContext {
	if base == nil {
		return incoming
	}
	if incoming == nil {
		return base
	}

	merged := &UpdateContext{FilledEmptySegments: base.FilledEmptySegments + incoming.FilledEmptySegments}
	merged.Moved = append(append([]AddrMove{}, base.Moved...), incoming.Moved...)
	merged.ShiftMoved = append(append([]AddrMove{}, base.ShiftMoved...), incoming.ShiftMoved...)

	i, j := 0, 0
	for i < len(base.Updated) && j < len(incoming.Updated) {
		switch {
		case base.Updated[i].SegmentID < incoming.Updated[j].SegmentID:
			merged.Updated = append(merged.Updated, base.Updated[i])
			i++
		case base.Updated[i].SegmentID > incoming.Updated[j].SegmentID:
			merged.Updated = append(merged.Updated, incoming.Updated[j])
			j++
		default:
			merged.Updated = append(merged.Updated, incoming.Updated[j])
			i++
			j++
		}
	}
	merged.Updated = append(merged.Updated, base.Updated[i:]...)
	merged.Updated = append(merged.Updated, incoming.Updated[j:]...)

	return merged
}

// l2Update keeps the L2 separator layer in sync after an L3 rebalance
// touched the segments named in l3Ctx: segments that already had an
// L2 entry get their separator key rewritten in place, and segments
// the rebalance newly populated (OldCount == 0) get a brand-new L2
// entry appended, which may itself trigger an L2 rebalance. Grounded
// on original_source/src/cobtree.cc's CoBtree::L2Update, simplified to
// a single forward pass plus in-segment lookup rather than the
// source's synchronized backward/forward pointer walk (spec §9).
func (cb *CoBtree) l2Update(l2SegID, l3InsertSegID, l2Pos int, l3Ctx *UpdateContext) (*UpdateContext, error) {
	var aggregate *UpdateContext

	for _, u := range l3Ctx.Updated {
		minKey := minL3Key(cb.l3, u.SegmentID)

		if u.OldCount > 0 {
			if cb.rewriteL2Entry(l2SegID, u.SegmentID, minKey) {
				continue
			}
		}

		entry := make([]byte, l2EntrySize)
		encodeL2Entry(l2Entry{Key: minKey, L3Segment: uint64(u.SegmentID)}, entry)

		ctx, err := cb.l2.Add(entry, cb.l2.LastNonEmptySegment(), cb.l2.SegmentSize()-1)
		if err != nil {
			return nil, err
		}
		aggregate = mergeUpdateContexts(aggregate, ctx)
	}

	if aggregate == nil {
		aggregate = &UpdateContext{}
	}
	return aggregate, nil
}

// rewriteL2Entry finds the L2 entry in segmentID pointing at
// l3SegmentID and overwrites its key in place, reporting whether one
// was found.
func (cb *CoBtree) rewriteL2Entry(segmentID, l3SegmentID int, newKey uint64) bool {
	seg := cb.l2.Get(segmentID)
	segSize := cb.l2.SegmentSize()
	first := occupiedFrom(segSize, seg.ItemCount)

	for s := first; s < segSize; s++ {
		buf := cb.l2.itemAt(seg.Buf, s)
		if decodeL2Entry(buf).L3Segment == uint64(l3SegmentID) {
			encodeL2Entry(l2Entry{Key: newKey, L3Segment: uint64(l3SegmentID)}, buf)
			return true
		}
	}
	return false
}

// l1Update keeps the vEB tree's leaves in sync after an L2 rebalance
// touched the segments named in l2Ctx, mirroring l2Update one layer
// up. It walks the leaves already in the tree with a backward iterator
// seeded at leafAddr for segments before l2InsertSegID and a forward
// iterator seeded at leafAddr for l2InsertSegID and everything after,
// rewriting each existing leaf's key in stride with l2Ctx.Updated
// (ascending by SegmentID, so a descending walk over the "before" half
// and an ascending walk over the rest both line up one-to-one with an
// existing leaf). Segments the rebalance populated for the first time
// have no leaf yet; those are collected and inserted once both walks
// are done, since Tree.Insert can itself move other leaves and would
// invalidate an iterator still in flight. Grounded on
// original_source/src/cobtree.cc's CoBtree::L1Update and its
// vEBTreeBackwardIterator/vEBTreeForwardIterator pair.
func (cb *CoBtree) l1Update(leafAddr uint64, l2InsertSegID int, l2Ctx *UpdateContext) error {
	var before, atOrAfter []UpdateEntry
	for _, u := range l2Ctx.Updated {
		if u.SegmentID < l2InsertSegID {
			before = append(before, u)
		} else {
			atOrAfter = append(atOrAfter, u)
		}
	}

	var newSegments []UpdateEntry

	back := NewLeafIteratorFrom(cb.tree, cb.tree.rootAddr, leafAddr, true)
	for i := len(before) - 1; i >= 0; i-- {
		u := before[i]
		if u.OldCount == 0 {
			newSegments = append(newSegments, u)
			continue
		}
		invariant(back.Next(), "backward leaf iterator exhausted before l2 segment %d", u.SegmentID)
		addr, _ := back.Leaf()
		cb.tree.updateLeafKey(addr, minL2Key(cb.l2, u.SegmentID))
	}

	fwd := NewLeafIteratorFrom(cb.tree, cb.tree.rootAddr, leafAddr, false)
	for _, u := range atOrAfter {
		if u.OldCount == 0 {
			newSegments = append(newSegments, u)
			continue
		}
		invariant(fwd.Next(), "forward leaf iterator exhausted at l2 segment %d", u.SegmentID)
		addr, _ := fwd.Leaf()
		cb.tree.updateLeafKey(addr, minL2Key(cb.l2, u.SegmentID))
	}

	for _, u := range newSegments {
		if err := cb.tree.Insert(minL2Key(cb.l2, u.SegmentID), uint64(u.SegmentID)); err != nil {
			return err
		}
	}
	return nil
}
