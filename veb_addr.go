package cobtree

// translateAddr looks addr up in moves' OldAddr->NewAddr mapping,
// returning addr unchanged if nothing in moves relocated it.
func translateAddr(moves []AddrMove, addr uint64) uint64 {
	for _, m := range moves {
		if m.OldAddr == addr {
			return m.NewAddr
		}
	}
	return addr
}

// composeMoves chains a PMA.Add's two relocation phases into a single
// set of old->final moves: shiftMoved's addresses are from before the
// insert, redistributeMoved's are from after the shift but before
// redistribute, so an item can appear in both (shifted, then
// redistributed again). Composing them here means every caller only
// ever needs one hop to translate an address through an entire Add,
// rather than having to know the two phases exist at all.
func composeMoves(shiftMoved, redistributeMoved []AddrMove) []AddrMove {
	if len(shiftMoved) == 0 {
		return redistributeMoved
	}
	if len(redistributeMoved) == 0 {
		return shiftMoved
	}

	composed := make([]AddrMove, 0, len(shiftMoved)+len(redistributeMoved))
	consumed := make(map[uint64]bool, len(shiftMoved))

	for _, s := range shiftMoved {
		final := translateAddr(redistributeMoved, s.NewAddr)
		composed = append(composed, AddrMove{OldAddr: s.OldAddr, NewAddr: final})
		consumed[s.NewAddr] = true
	}

	for _, r := range redistributeMoved {
		if consumed[r.OldAddr] {
			continue
		}
		composed = append(composed, r)
	}

	return composed
}

// adjustAddresses repairs parent/child pointers after a PMA rebalance
// relocated items, mirroring the reference implementation's
// RebalancePointerAdjustementCtx: every moved node's children must be
// told its new address, and its parent's entry for it must be
// rewritten (spec §5.3). moves is applied in order; an address may
// appear as an OldAddr at most once since a rebalance repacks each
// segment window exactly once per Add.
func (t *Tree) adjustAddresses(moves []AddrMove) {
	if len(moves) == 0 {
		return
	}

	remap := make(map[uint64]uint64, len(moves))
	for _, m := range moves {
		remap[m.OldAddr] = m.NewAddr
	}
	translate := func(addr uint64) uint64 {
		if addr == NilAddr {
			return NilAddr
		}
		if n, ok := remap[addr]; ok {
			return n
		}
		return addr
	}

	for _, m := range moves {
		node := t.GetNode(m.NewAddr)

		if !node.isLeaf() {
			for i, c := range node.Children {
				if c.empty() {
					continue
				}
				childAddr := translate(c.Addr)
				child := t.GetNode(childAddr)
				if child.ParentAddr != m.NewAddr {
					child.ParentAddr = m.NewAddr
					t.putNode(childAddr, child)
				}
				node.Children[i].Addr = childAddr
			}
			t.putNode(m.NewAddr, node)
		}

		parentAddr := translate(node.ParentAddr)
		if parentAddr != NilAddr {
			parent := t.GetNode(parentAddr)
			for i, c := range parent.Children {
				if c.Addr == m.OldAddr {
					parent.Children[i].Addr = m.NewAddr
					t.putNode(parentAddr, parent)
					break
				}
			}
		}
		if node.ParentAddr != parentAddr {
			node.ParentAddr = parentAddr
			t.putNode(m.NewAddr, node)
		}
	}

	if n, ok := remap[t.rootAddr]; ok {
		t.rootAddr = n
	}
}
