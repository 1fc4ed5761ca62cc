package cobtree

import (
	"math"
)

// DensityOptions are the four thresholds spec §6 names: τ_d, τ_0, ρ_0,
// ρ_d with 0 < ρ_d < ρ_0 < τ_0 < τ_d ≤ 1. Only the τ's are consulted
// by this insert-only implementation (spec §9 open question).
type DensityOptions struct {
	TauD, Tau0, Rho0, RhoD float64
}

// Segment is a reference to one PMA segment's backing slots plus how
// many of the rightmost slots are occupied.
type Segment struct {
	Buf       []byte
	ItemCount int
}

// UpdateEntry records one segment whose contents or count changed
// during an Add, with its item count before and after.
type UpdateEntry struct {
	SegmentID int
	OldCount  int
	NewCount  int
}

// AddrMove records that the item previously at global address OldAddr
// (segmentID*segSize+slot) now lives at NewAddr, because a rebalance
// repacked its segment window. Callers that store addresses pointing
// into this PMA (the vEB layer's node pointers) must rewrite them.
type AddrMove struct {
	OldAddr uint64
	NewAddr uint64
}

// UpdateContext is the log returned by a successful Add: every segment
// that changed, how many of them transitioned from empty to non-empty,
// and the old->new address remapping for items a rebalance relocated
// (spec §3). ShiftMoved and Moved are kept separate rather than
// flattened together: ShiftMoved records the pre-existing items Add
// shifted left to open room for the new one, while Moved holds only
// the relocations a triggered redistribute produced. The item Add just
// inserted is never a ShiftMoved.OldAddr — it can only appear, if at
// all, as a Moved.OldAddr.
type UpdateContext struct {
	Updated             []UpdateEntry
	FilledEmptySegments int
	Moved               []AddrMove
	ShiftMoved          []AddrMove
}

func (c *UpdateContext) empty() bool {
	return len(c.Updated) == 0
}

// PMA is a cache-oblivious packed memory array: a sequence of
// fixed-size segments holding right-packed, fixed-width items, grown
// by local rebalance (spec §3, §4.1).
type PMA struct {
	id       string
	itemSize int

	segSize  int // S, items per segment
	segCount int // P, segment count
	height   int // h = ceil(log2 P)

	itemCounts   []int
	lastNonEmpty int

	device *BlockDevice
	cache  *Cache

	density DensityOptions
}

// NewPMA creates a PMA sized for estItems items of itemSize bytes
// each, with redundancy factor r (spec §3's CoBtree sizing derivation
// feeds the caller-computed estItems/itemSize in; the PMA itself only
// applies r to its own segment count).
func NewPMA(id string, itemSize, estItems int, r float64, density DensityOptions, cache *Cache) *PMA {
	invariant(itemSize > 0, "item size must be positive, got %d", itemSize)
	invariant(estItems > 0, "estimated item count must be positive, got %d", estItems)

	segSize := int(math.Ceil(math.Log2(float64(estItems))))
	if segSize < 1 {
		segSize = 1
	}
	segCount := int(math.Ceil(float64(estItems) / float64(segSize) * r))
	if segCount < 2 {
		segCount = 2
	}
	if segCount%2 != 0 {
		segCount++
	}
	height := int(math.Ceil(math.Log2(float64(segCount))))
	if height < 1 {
		height = 1
	}

	p := &PMA{
		id:         id,
		itemSize:   itemSize,
		segSize:    segSize,
		segCount:   segCount,
		height:     height,
		itemCounts: make([]int, segCount),
		device:     NewBlockDevice(int64(segCount) * int64(segSize) * int64(itemSize)),
		cache:      cache,
		density:    density,
	}

	tl.V("pma").Printf("new pma %q: S=%d P=%d h=%d itemSize=%d", id, segSize, segCount, height, itemSize)

	return p
}

// SegmentSize returns S, the number of item slots per segment.
func (p *PMA) SegmentSize() int { return p.segSize }

// SegmentCount returns P, the number of segments.
func (p *PMA) SegmentCount() int { return p.segCount }

// LastNonEmptySegment returns the highest-index segment with at least
// one item.
func (p *PMA) LastNonEmptySegment() int { return p.lastNonEmpty }

// ItemCount returns the current item count of segmentID, without
// touching the cache.
func (p *PMA) ItemCount(segmentID int) int {
	invariant(segmentID >= 0 && segmentID < p.segCount, "segment id out of range: %d", segmentID)
	return p.itemCounts[segmentID]
}

func (p *PMA) segmentOffset(segmentID int) int64 {
	return int64(segmentID) * int64(p.segSize) * int64(p.itemSize)
}

// Get returns a reference to segmentID's backing buffer and its
// current item count. The buffer persists until the next structural
// change to this PMA.
func (p *PMA) Get(segmentID int) *Segment {
	invariant(segmentID >= 0 && segmentID < p.segCount, "segment id out of range: %d", segmentID)

	fp := Fingerprint(p.id, segmentID)
	buf, ok := p.cache.Get(fp)
	if !ok {
		buf = p.device.Read(p.segmentOffset(segmentID), int64(p.segSize)*int64(p.itemSize))
		p.cache.Add(fp, buf)
	}

	return &Segment{Buf: buf, ItemCount: p.itemCounts[segmentID]}
}

func (p *PMA) itemAt(buf []byte, slot int) []byte {
	return buf[slot*p.itemSize : (slot+1)*p.itemSize]
}

// GlobalAddr maps a (segment, slot) pair to the flat item address used
// by callers that store addresses pointing into this PMA.
func (p *PMA) GlobalAddr(segmentID, slot int) uint64 {
	return uint64(segmentID)*uint64(p.segSize) + uint64(slot)
}

// SplitAddr maps a flat item address back to its (segment, slot) pair.
func (p *PMA) SplitAddr(addr uint64) (segmentID, slot int) {
	return int(addr / uint64(p.segSize)), int(addr % uint64(p.segSize))
}

// Add inserts item so that it afterwards occupies slot position within
// segmentID. The caller must have chosen position as the sorted
// insertion point and must have at least one empty slot in the
// segment (spec §4.1).
func (p *PMA) Add(item []byte, segmentID, position int) (*UpdateContext, error) {
	invariant(len(item) == p.itemSize, "item size mismatch: got %d want %d", len(item), p.itemSize)
	invariant(segmentID >= 0 && segmentID < p.segCount, "segment id out of range: %d", segmentID)

	seg := p.Get(segmentID)
	leftEmpty := p.segSize - seg.ItemCount - 1
	invariant(position >= leftEmpty, "insert position %d must be >= left-empty %d", position, leftEmpty)
	invariant(position < p.segSize, "insert position %d out of segment bounds %d", position, p.segSize)

	var moved []AddrMove
	for s := leftEmpty; s < position; s++ {
		copy(p.itemAt(seg.Buf, s), p.itemAt(seg.Buf, s+1))
		moved = append(moved, AddrMove{
			OldAddr: p.GlobalAddr(segmentID, s+1),
			NewAddr: p.GlobalAddr(segmentID, s),
		})
	}
	copy(p.itemAt(seg.Buf, position), item)

	p.itemCounts[segmentID]++
	if segmentID > p.lastNonEmpty {
		p.lastNonEmpty = segmentID
	}

	ctx, err := p.rebalance(segmentID)
	if err != nil {
		return nil, err
	}
	ctx.ShiftMoved = moved

	return ctx, nil
}
