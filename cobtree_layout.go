package cobtree

import "encoding/binary"

const l2EntrySize = 16
const l3RecordSize = 16

// l2Entry is one index-layer separator: the smallest key stored in
// L3Segment, and that segment's id (spec §3's L2Node).
type l2Entry struct {
	Key       uint64
	L3Segment uint64
}

func encodeL2Entry(e l2Entry, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], e.Key)
	binary.BigEndian.PutUint64(buf[8:16], e.L3Segment)
}

func decodeL2Entry(buf []byte) l2Entry {
	return l2Entry{
		Key:       binary.BigEndian.Uint64(buf[0:8]),
		L3Segment: binary.BigEndian.Uint64(buf[8:16]),
	}
}

// l3Record is one data-layer record (spec §3's L3Node).
type l3Record struct {
	Key   uint64
	Value uint64
}

func encodeL3Record(r l3Record, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], r.Key)
	binary.BigEndian.PutUint64(buf[8:16], r.Value)
}

func decodeL3Record(buf []byte) l3Record {
	return l3Record{
		Key:   binary.BigEndian.Uint64(buf[0:8]),
		Value: binary.BigEndian.Uint64(buf[8:16]),
	}
}

// occupiedFrom returns the first occupied slot index within a segment
// of seg.ItemCount items right-packed in a segSize-slot segment — the
// convention every PMA user in this package shares.
func occupiedFrom(segSize, itemCount int) int {
	return segSize - itemCount
}

// l2Lookup scans l2Seg (a segment of l2Entry records, ascending by
// key, right-packed) for the entry whose key is the smallest key >=
// target, returning its L3 segment id and its slot index within the
// segment. Grounded on original_source/src/cobtree.cc's GetL2Item,
// corrected to a plain ascending scan (spec §9: the source's
// reverse-scan pointer arithmetic is not carried over).
func l2Lookup(pma *PMA, segmentID int, target uint64) (l3Segment uint64, slot int) {
	seg := pma.Get(segmentID)
	segSize := pma.SegmentSize()
	first := occupiedFrom(segSize, seg.ItemCount)

	last := first
	for s := first; s < segSize; s++ {
		e := decodeL2Entry(pma.itemAt(seg.Buf, s))
		last = s
		if e.Key >= target {
			return e.L3Segment, s
		}
	}
	return decodeL2Entry(pma.itemAt(seg.Buf, last)).L3Segment, last
}

// l3Lookup scans l3Seg for the record with the smallest key >= target.
// If that key equals target, slot is the matching record's own index.
// Otherwise slot is one below the lower-bound index: PMA.Add shifts
// [leftEmpty+1,position] down into [leftEmpty,position-1] and writes
// the new item at position, so handing it the lower-bound index itself
// would land the new record one slot past where it sorts, ahead of an
// item with a greater key. Grounded on original_source/src/cobtree.cc's
// GetRecordLocation, corrected the same way as l2Lookup.
func l3Lookup(pma *PMA, segmentID int, target uint64) (slot int, keyEqual bool) {
	seg := pma.Get(segmentID)
	segSize := pma.SegmentSize()
	first := occupiedFrom(segSize, seg.ItemCount)

	if seg.ItemCount == 0 {
		return segSize - 1, false
	}

	for s := first; s < segSize; s++ {
		r := decodeL3Record(pma.itemAt(seg.Buf, s))
		if r.Key >= target {
			if r.Key == target {
				return s, true
			}
			return s - 1, false
		}
	}
	return segSize - 1, false
}

// minL2Key returns the smallest key in segmentID of an l2Entry PMA,
// i.e. the key at the leftmost occupied slot; minL3Key does the same
// for an l3Record PMA.
func minL2Key(pma *PMA, segmentID int) uint64 {
	seg := pma.Get(segmentID)
	if seg.ItemCount == 0 {
		return NilAddr
	}
	first := occupiedFrom(pma.SegmentSize(), seg.ItemCount)
	return decodeL2Entry(pma.itemAt(seg.Buf, first)).Key
}

func minL3Key(pma *PMA, segmentID int) uint64 {
	seg := pma.Get(segmentID)
	if seg.ItemCount == 0 {
		return NilAddr
	}
	first := occupiedFrom(pma.SegmentSize(), seg.ItemCount)
	return decodeL3Record(pma.itemAt(seg.Buf, first)).Key
}
