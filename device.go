package cobtree

import "sync"

// DefaultBlockSize is the device's block size in bytes, matching the
// reference implementation's BLOCKSIZE.
const DefaultBlockSize int64 = 4096

// BlockDevice is a flat, byte-addressed RAM backing store. Persistence
// is out of scope (spec §6): it never touches a file.
type BlockDevice struct {
	mu        sync.RWMutex
	blockSize int64
	buf       []byte
}

// NewBlockDevice allocates a device of at least size bytes, rounded up
// to a whole number of blocks.
func NewBlockDevice(size int64) *BlockDevice {
	return NewBlockDeviceBlockSize(DefaultBlockSize, size)
}

func NewBlockDeviceBlockSize(blockSize, size int64) *BlockDevice {
	return &BlockDevice{
		blockSize: blockSize,
		buf:       make([]byte, adjustForBlockSize(blockSize, size)),
	}
}

func adjustForBlockSize(blockSize, size int64) int64 {
	return (size + blockSize - 1) / blockSize * blockSize
}

// BlockSize returns B, the device's block size in bytes.
func (d *BlockDevice) BlockSize() int64 {
	return d.blockSize
}

// Read returns a direct slice into the device's buffer — the simulator
// is zero-copy by design (spec §4.4): callers must not retain it past
// their next Write to an overlapping range.
func (d *BlockDevice) Read(off, length int64) []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()

	invariant(off >= 0 && length >= 0 && off+length <= int64(len(d.buf)),
		"read out of range: off=%d len=%d size=%d", off, length, len(d.buf))

	return d.buf[off : off+length]
}

// Write copies data into the device at off, growing the buffer if
// necessary.
func (d *BlockDevice) Write(off int64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	need := off + int64(len(data))
	if need > int64(len(d.buf)) {
		grown := make([]byte, adjustForBlockSize(d.blockSize, need))
		copy(grown, d.buf)
		d.buf = grown
	}

	copy(d.buf[off:], data)
}

// Size returns the current buffer size in bytes.
func (d *BlockDevice) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return int64(len(d.buf))
}
