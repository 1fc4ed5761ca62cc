package cobtree

import "encoding/binary"

// NilAddr marks an absent address or key, matching the reference
// implementation's use of UINT64_MAX as a sentinel.
const NilAddr = ^uint64(0)

// NodeEntry is one child slot of a Node: the smallest key reachable
// through addr, and addr itself (a PMA item index, not a real
// pointer — spec §5's address-handle model).
type NodeEntry struct {
	Key  uint64
	Addr uint64
}

func (e NodeEntry) empty() bool {
	return e.Key == NilAddr && e.Addr == NilAddr
}

// Node is one van Emde Boas layout tree node: a parent back-pointer,
// a height (1 for a leaf), and up to fanout children. A leaf has a
// single entry holding its own key and, in place of a child address,
// its stored value (spec §5.2) — a leaf has no parent to keep its key
// in until a split gives it one, so it has to carry it itself.
type Node struct {
	ParentAddr uint64
	Height     uint64
	Children   []NodeEntry
}

func newEmptyNode(fanout int) *Node {
	n := &Node{
		ParentAddr: NilAddr,
		Height:     NilAddr,
		Children:   make([]NodeEntry, fanout),
	}
	for i := range n.Children {
		n.Children[i] = NodeEntry{Key: NilAddr, Addr: NilAddr}
	}
	return n
}

// nodeSize returns the fixed encoded byte length of a Node with the
// given fanout: parent_addr, height, then fanout*(key,addr) pairs.
func nodeSize(fanout int) int {
	return 8 + 8 + fanout*16
}

func encodeNode(n *Node, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], n.ParentAddr)
	binary.BigEndian.PutUint64(buf[8:16], n.Height)
	off := 16
	for _, c := range n.Children {
		binary.BigEndian.PutUint64(buf[off:off+8], c.Key)
		binary.BigEndian.PutUint64(buf[off+8:off+16], c.Addr)
		off += 16
	}
}

func decodeNode(buf []byte, fanout int) *Node {
	invariant(len(buf) >= nodeSize(fanout), "node buffer too short: %d < %d", len(buf), nodeSize(fanout))

	n := &Node{
		ParentAddr: binary.BigEndian.Uint64(buf[0:8]),
		Height:     binary.BigEndian.Uint64(buf[8:16]),
		Children:   make([]NodeEntry, fanout),
	}
	off := 16
	for i := 0; i < fanout; i++ {
		n.Children[i] = NodeEntry{
			Key:  binary.BigEndian.Uint64(buf[off : off+8]),
			Addr: binary.BigEndian.Uint64(buf[off+8 : off+16]),
		}
		off += 16
	}
	return n
}

// isLeaf reports whether n has no children below it (height 1).
func (n *Node) isLeaf() bool {
	return n.Height == 1
}

// childCount returns how many of n's children slots are occupied.
func (n *Node) childCount() int {
	c := 0
	for _, e := range n.Children {
		if !e.empty() {
			c++
		}
	}
	return c
}

// childToSearch returns the address of the child whose subtree a
// lookup for key must descend into. Children entries store each
// subtree's own minimum key, ascending, so the correct subtree is the
// rightmost one whose minimum does not exceed key (spec §5.1's
// descent rule, grounded on original_source/src/type.cc's
// Node::NextPos). matchKey reports whether the chosen entry's key
// equals key exactly.
func childToSearch(n *Node, key uint64) (addr uint64, matchKey bool) {
	chosen := n.Children[0]
	for _, e := range n.Children {
		if e.empty() || e.Key > key {
			break
		}
		chosen = e
	}
	return chosen.Addr, chosen.Key == key
}
