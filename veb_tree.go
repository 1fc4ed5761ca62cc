package cobtree

// Tree is a van Emde Boas layout tree stored inside a PMA of
// fixed-size Node records: an internal node holding at most fanout
// children recursively halves its subtree across the PMA's address
// space, giving cache-oblivious O(log_B N) traversal independent of
// block size B (spec §5).
type Tree struct {
	pma      *PMA
	fanout   int
	rootAddr uint64
}

// NewTree creates a Tree over a fresh PMA sized for estNodes node
// records, with a single empty leaf as its root.
func NewTree(idPrefix string, fanout, estNodes int, r float64, density DensityOptions, cache *Cache) *Tree {
	invariant(fanout >= 2, "fanout must be at least 2, got %d", fanout)

	pma := NewPMA(idPrefix+".veb", nodeSize(fanout), estNodes, r, density, cache)

	t := &Tree{pma: pma, fanout: fanout}

	root := newEmptyNode(fanout)
	root.Height = 1
	root.Children[0] = NodeEntry{Key: NilAddr, Addr: NilAddr}

	buf := make([]byte, nodeSize(fanout))
	encodeNode(root, buf)

	seg := pma.segCount / 2
	slot := pma.segSize - 1
	ctx, err := pma.Add(buf, seg, slot)
	invariant(err == nil, "failed to seed vEB tree root: %v", err)

	t.rootAddr = pma.GlobalAddr(seg, slot)
	t.adjustAddresses(ctx.Moved)

	return t
}

// GetNode decodes the Node stored at addr.
func (t *Tree) GetNode(addr uint64) *Node {
	segmentID, slot := t.pma.SplitAddr(addr)
	seg := t.pma.Get(segmentID)
	return decodeNode(t.pma.itemAt(seg.Buf, slot), t.fanout)
}

// putNode re-encodes n in place at addr, without going through
// PMA.Add — valid only when addr's slot already holds a Node record
// (no resize, no rebalance).
func (t *Tree) putNode(addr uint64, n *Node) {
	segmentID, slot := t.pma.SplitAddr(addr)
	seg := t.pma.Get(segmentID)
	encodeNode(n, t.pma.itemAt(seg.Buf, slot))
}

// Get returns the value stored under the leaf reached by descending
// for key: the leaf with the largest key <= key (spec §5.1). matchKey
// is decided from the leaf's own stored key, not the last internal
// comparison, since a lone root leaf has no parent entry to compare.
func (t *Tree) Get(key uint64) (value uint64, leafAddr uint64, matchKey bool) {
	addr := t.rootAddr
	node := t.GetNode(addr)

	for !node.isLeaf() {
		addr, _ = childToSearch(node, key)
		node = t.GetNode(addr)
	}

	return node.Children[0].Addr, addr, node.Children[0].Key == key
}

// Insert adds key->value, or updates value in place if key already
// has a leaf (spec §5.2). The new leaf is placed immediately before
// the leaf found by descent in the PMA, whichever of the two keys is
// larger, so address order between the two does not follow key order.
func (t *Tree) Insert(key, value uint64) error {
	addr := t.rootAddr
	node := t.GetNode(addr)

	for !node.isLeaf() {
		addr, _ = childToSearch(node, key)
		node = t.GetNode(addr)
	}

	if node.Children[0].Key == key {
		node.Children[0].Addr = value
		t.putNode(addr, node)
		return nil
	}

	// The tree starts life as a single bare leaf with no parent and no
	// key of its own yet; the very first insert just fills it in place
	// rather than splitting off a sibling nothing points to.
	if node.Children[0].Key == NilAddr && node.ParentAddr == NilAddr {
		node.Children[0] = NodeEntry{Key: key, Addr: value}
		t.putNode(addr, node)
		return nil
	}

	oldLeafKey := node.Children[0].Key

	newLeaf := newEmptyNode(t.fanout)
	newLeaf.Height = 1
	newLeaf.ParentAddr = node.ParentAddr
	newLeaf.Children[0] = NodeEntry{Key: key, Addr: value}

	landedAddr, moves, err := t.addNodeToPMA(newLeaf, addr-1)
	if err != nil {
		return err
	}
	addr = translateAddr(moves, addr)

	if node.ParentAddr == NilAddr {
		// addr was the root leaf itself: promote both leaves under a
		// brand new root, ordering them by key rather than by the
		// address addNodeToPMA happened to land the new one at.
		if key < oldLeafKey {
			return t.addNewRoot(landedAddr, addr)
		}
		return t.addNewRoot(addr, landedAddr)
	}

	return t.addChildToNode(node.ParentAddr, landedAddr, key)
}

// updateLeafKey rewrites leafAddr's own key and then each ancestor's
// entry for it, walking up as long as the rewritten entry is its
// node's leftmost child: an entry further right does not change its
// node's own minimum key, so every separator above it stays valid.
func (t *Tree) updateLeafKey(leafAddr, newKey uint64) {
	leaf := t.GetNode(leafAddr)
	leaf.Children[0].Key = newKey
	t.putNode(leafAddr, leaf)

	childAddr, parentAddr := leafAddr, leaf.ParentAddr
	for parentAddr != NilAddr {
		parent := t.GetNode(parentAddr)
		idx := -1
		for i, c := range parent.Children {
			if c.Addr == childAddr {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		parent.Children[idx].Key = newKey
		t.putNode(parentAddr, parent)
		if idx != 0 {
			return
		}
		childAddr, parentAddr = parentAddr, parent.ParentAddr
	}
}

// addNodeToPMA inserts n's encoding so that it lands at global address
// insertAt (spec §5.2's "insert right before the search leaf"), and
// applies any address remap a triggered rebalance produced. n itself
// is never among the items the pre-insert shift relocates — that
// phase only displaces items already occupying the slots it vacates
// on the way to insertAt — but a redistribute it triggers can still
// relocate it, so its returned address is translated through the
// redistribute phase, never the shift phase, before being handed back.
// moves is every relocation this call caused, composed into single
// old->final hops, for callers that are tracking other addresses of
// their own that might have been caught up in the same shift or
// redistribute.
func (t *Tree) addNodeToPMA(n *Node, insertAt uint64) (landedAddr uint64, moves []AddrMove, err error) {
	segmentID, slot := t.pma.SplitAddr(insertAt)

	buf := make([]byte, nodeSize(t.fanout))
	encodeNode(n, buf)

	ctx, err := t.pma.Add(buf, segmentID, slot)
	if err != nil {
		return 0, nil, err
	}

	landedAddr = translateAddr(ctx.Moved, t.pma.GlobalAddr(segmentID, slot))
	moves = composeMoves(ctx.ShiftMoved, ctx.Moved)

	t.adjustAddresses(moves)

	return landedAddr, moves, nil
}

// addChildToNode inserts a (key,childAddr) entry into the node at
// parentAddr, splitting it first if it has no empty child slot
// (spec §5.2).
func (t *Tree) addChildToNode(parentAddr, childAddr, key uint64) error {
	parent := t.GetNode(parentAddr)

	slot := -1
	for i, c := range parent.Children {
		if c.empty() {
			slot = i
			break
		}
	}

	if slot == -1 {
		return t.splitNode(parentAddr, NodeEntry{Key: key, Addr: childAddr})
	}

	insertSortedChild(parent, slot, NodeEntry{Key: key, Addr: childAddr})
	t.putNode(parentAddr, parent)
	return nil
}

// insertSortedChild inserts e into n's first emptySlot empty slots,
// keeping Children sorted by key ascending.
func insertSortedChild(n *Node, emptySlot int, e NodeEntry) {
	i := emptySlot
	for i > 0 && n.Children[i-1].Key > e.Key {
		n.Children[i] = n.Children[i-1]
		i--
	}
	n.Children[i] = e
}
