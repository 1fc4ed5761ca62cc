package cobtree

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache is a fingerprint→buffer mapping with FIFO eviction, used only
// to count block transfers (spec §4.4). It is not a correctness
// mechanism: a miss falls through to the block device and the
// returned slice aliases the device's buffer directly (zero-copy).
type Cache struct {
	mu sync.Mutex

	capacity  int64
	usage     int64
	blockSize int64

	contents map[uint64][]byte
	fifo     []uint64

	transferred int64
}

// NewCache creates a cache bounded to capacityBytes.
func NewCache(capacityBytes int64) *Cache {
	return &Cache{
		capacity:  capacityBytes,
		blockSize: DefaultBlockSize,
		contents:  make(map[uint64][]byte),
	}
}

// SetBlockSizeForStats informs the cache of B, the unit the transfer
// counter is denominated in. Admitted/evicted content may span
// multiple blocks.
func (c *Cache) SetBlockSizeForStats(blockSize int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blockSize = blockSize
}

// RecordedBlockTransfer returns the cumulative block-transfer count.
func (c *Cache) RecordedBlockTransfer() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transferred
}

// ResetBlockTransferStats zeroes the transfer counter.
func (c *Cache) ResetBlockTransferStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transferred = 0
}

// Fingerprint computes the (pma id_prefix, segment_id) key spec §4.4
// names, hashed to a uint64 so the cache's map key stays comparable
// and cheap regardless of how long id_prefix is.
func Fingerprint(idPrefix string, segmentID int) uint64 {
	return xxhash.Sum64String(idPrefix + "#" + strconv.Itoa(segmentID))
}

// Get returns the cached buffer for fp, if present.
func (c *Cache) Get(fp uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.contents[fp]
	return b, ok
}

// Add admits buf under fp, evicting FIFO-oldest entries until it fits.
// A no-op if fp is already present.
func (c *Cache) Add(fp uint64, buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.contents[fp]; ok {
		return
	}

	size := int64(len(buf))
	for c.usage+size > c.capacity && len(c.fifo) > 0 {
		oldest := c.fifo[0]
		c.fifo = c.fifo[1:]
		victim := c.contents[oldest]
		delete(c.contents, oldest)
		c.usage -= int64(len(victim))
		c.transferred += c.blocksFor(int64(len(victim)))
	}

	c.fifo = append(c.fifo, fp)
	c.contents[fp] = buf
	c.usage += size
	c.transferred += c.blocksFor(size)
}

func (c *Cache) blocksFor(n int64) int64 {
	if n == 0 {
		return 0
	}
	return (n-1)/c.blockSize + 1
}
