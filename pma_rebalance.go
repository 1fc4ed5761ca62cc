package cobtree

import "math"

// tau returns the upper density threshold for a window of width
// segments out of the PMA's segCount total, interpolated linearly
// between τ_d (a single segment, width 1) and τ_0 (the whole PMA,
// width segCount) as spec §4.1 defines. Using the window's actual
// width rather than a doubling-step counter avoids any mismatch
// between segCount and a power of two.
func (p *PMA) tau(width int) float64 {
	if p.segCount <= 1 {
		return p.density.Tau0
	}
	frac := float64(width-1) / float64(p.segCount-1)
	return p.density.TauD + (p.density.Tau0-p.density.TauD)*frac
}

// rebalance is called after Add increments segmentID's item count. It
// implements spec §4.1's window-expansion algorithm: fast path below
// threshold, otherwise pair with the aligned sibling and keep doubling
// the window until its density drops to or below τ(width) or the
// window spans the whole PMA, in which case ErrFull is returned.
func (p *PMA) rebalance(segmentID int) (*UpdateContext, error) {
	ctx := &UpdateContext{}

	if p.itemCounts[segmentID] < int(p.tau(1)*float64(p.segSize)) {
		return ctx, nil
	}

	// Always pair segment 2k with 2k+1 (spec §9's consistent choice).
	left := segmentID &^ 1
	right := left + 1
	if right >= p.segCount {
		right = left
		left = right - 1
		if left < 0 {
			left = 0
		}
	}

	total := p.windowTotal(left, right)

	for float64(total) > p.tau(right-left+1)*float64(right-left+1)*float64(p.segSize) {
		if right-left+1 >= p.segCount {
			return nil, ErrFull
		}
		left, right = p.expandWindow(left, right)
		total = p.windowTotal(left, right)
	}

	p.redistribute(left, right, total, ctx)

	tl.V("rebalance").Printf("rebalance [%d,%d] total=%d -> %d segments touched", left, right, total, len(ctx.Updated))

	return ctx, nil
}

func (p *PMA) windowTotal(left, right int) int {
	total := 0
	for s := left; s <= right; s++ {
		total += p.itemCounts[s]
	}
	return total
}

// expandWindow doubles a power-of-two-aligned window [left,right] to
// the next containing power-of-two-aligned window.
func (p *PMA) expandWindow(left, right int) (int, int) {
	ws := right - left + 1
	newWs := ws * 2
	newLeft := (left / newWs) * newWs
	newRight := newLeft + newWs - 1
	if newRight >= p.segCount {
		newRight = p.segCount - 1
		newLeft = newRight - newWs + 1
		if newLeft < 0 {
			newLeft = 0
		}
	}
	return newLeft, newRight
}

// redistribute re-lays out total items across segments [left,right] so
// every segment gets at least one item, the rightmost W-1 segments get
// ceil(total/W) items each, and the leftmost segment absorbs the
// remainder (spec §4.1, grounded on original_source/src/pma.cc's
// RebalanceRange). Implemented as snapshot-then-redistribute: the
// window's items are read into one ordered buffer before any segment
// is overwritten, which trivially satisfies "snapshot a source segment
// before its first destination write" (spec §9).
func (p *PMA) redistribute(left, right, total int, ctx *UpdateContext) {
	w := right - left + 1
	invariant(total >= w, "window [%d,%d] has %d items, need >= %d to give every segment one", left, right, total, w)

	items := make([][]byte, 0, total)
	oldAddrs := make([]uint64, 0, total)
	for s := left; s <= right; s++ {
		seg := p.Get(s)
		firstOccupied := p.segSize - seg.ItemCount
		for slot := firstOccupied; slot < p.segSize; slot++ {
			buf := make([]byte, p.itemSize)
			copy(buf, p.itemAt(seg.Buf, slot))
			items = append(items, buf)
			oldAddrs = append(oldAddrs, p.GlobalAddr(s, slot))
		}
	}
	invariant(len(items) == total, "collected %d items, expected %d", len(items), total)

	target := int(math.Ceil(float64(total) / float64(w)))
	leftCount := total - (w-1)*target
	invariant(leftCount >= 1, "leftmost segment would receive %d items", leftCount)

	ctx.FilledEmptySegments = 0
	idx := 0
	for i, s := 0, left; s <= right; i, s = i+1, s+1 {
		count := target
		if i == 0 {
			count = leftCount
		}

		seg := p.Get(s)
		if seg.ItemCount == 0 {
			ctx.FilledEmptySegments++
		}

		firstOccupied := p.segSize - count
		for slot := 0; slot < firstOccupied; slot++ {
			clear(p.itemAt(seg.Buf, slot))
		}
		for slot := firstOccupied; slot < p.segSize; slot++ {
			copy(p.itemAt(seg.Buf, slot), items[idx])
			newAddr := p.GlobalAddr(s, slot)
			if oldAddrs[idx] != newAddr {
				ctx.Moved = append(ctx.Moved, AddrMove{OldAddr: oldAddrs[idx], NewAddr: newAddr})
			}
			idx++
		}

		ctx.Updated = append(ctx.Updated, UpdateEntry{SegmentID: s, OldCount: p.itemCounts[s], NewCount: count})
		p.itemCounts[s] = count
		if s > p.lastNonEmpty {
			p.lastNonEmpty = s
		}
	}
	invariant(idx == total, "distributed %d items, expected %d", idx, total)
}

func clear(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
