package cobtree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDensity() DensityOptions {
	return DensityOptions{TauD: 1.0, Tau0: 0.75, Rho0: 0.5, RhoD: 0.25}
}

func encodeUint64Item(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func TestPMASegmentSizing(t *testing.T) {
	InitTestLogger(t, "")
	cache := NewCache(1 << 20)

	p := NewPMA("t", 8, 100, 2.0, testDensity(), cache)
	assert.GreaterOrEqual(t, p.SegmentSize(), 1)
	assert.GreaterOrEqual(t, p.SegmentCount(), 2)
	assert.Equal(t, 0, p.SegmentCount()%2)
}

func TestPMAAddWithinSegment(t *testing.T) {
	InitTestLogger(t, "")
	cache := NewCache(1 << 20)

	p := NewPMA("t", 8, 16, 4.0, testDensity(), cache)

	ctx, err := p.Add(encodeUint64Item(1), 0, p.SegmentSize()-1)
	require.NoError(t, err)
	assert.NotNil(t, ctx)
	assert.Equal(t, 1, p.ItemCount(0))

	ctx, err = p.Add(encodeUint64Item(2), 0, p.SegmentSize()-2)
	require.NoError(t, err)
	assert.NotNil(t, ctx)
	assert.Equal(t, 2, p.ItemCount(0))
}

func TestPMARebalanceTriggersOnDensity(t *testing.T) {
	InitTestLogger(t, "")
	cache := NewCache(1 << 20)

	p := NewPMA("t", 8, 8, 2.0, testDensity(), cache)
	segSize := p.SegmentSize()

	var sawFilledEmpty bool
	for i := 0; i < segSize; i++ {
		ctx, err := p.Add(encodeUint64Item(uint64(i)), 0, segSize-1)
		require.NoError(t, err)
		if ctx.FilledEmptySegments > 0 {
			sawFilledEmpty = true
		}
	}

	assert.True(t, sawFilledEmpty, "expected at least one rebalance to spread items into empty segments")

	total := 0
	for s := 0; s < p.SegmentCount(); s++ {
		total += p.ItemCount(s)
	}
	assert.Equal(t, segSize, total)
}

func TestPMAAddReturnsErrFullWhenSaturated(t *testing.T) {
	InitTestLogger(t, "")
	cache := NewCache(1 << 20)

	p := NewPMA("t", 8, 4, 1.0, testDensity(), cache)
	require.Equal(t, 1, p.height)

	var lastErr error
	for i := 0; i < p.segSize*p.segCount+1; i++ {
		_, err := p.Add(encodeUint64Item(uint64(i)), 0, p.segSize-1)
		if err != nil {
			lastErr = err
			break
		}
	}
	assert.ErrorIs(t, lastErr, ErrFull)
}

