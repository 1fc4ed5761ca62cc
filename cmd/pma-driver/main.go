// Command pma-driver exercises a bare PMA with a sequential or random
// insert workload and reports the resulting block-transfer count.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/nikandfor/tlog"

	cobtree "github.com/hugy718/cache-oblivious-btree"
)

func main() {
	var (
		itemCount  = flag.Int("n", 10000, "number of items to insert")
		itemSize   = flag.Int("item-size", 16, "item size in bytes")
		redundancy = flag.Float64("r", 2.0, "segment-count redundancy factor")
		cacheSize  = flag.Int64("cache", 1<<20, "cache capacity in bytes")
		random     = flag.Bool("random", false, "insert in random order instead of ascending")
		verbosity  = flag.String("v", "", "tlog verbosity topics")
	)
	flag.Parse()

	tlog.SetVerbosity(*verbosity)
	cobtree.SetLogger(tlog.DefaultLogger)

	cache := cobtree.NewCache(*cacheSize)
	density := cobtree.DensityOptions{TauD: 1.0, Tau0: 0.75, Rho0: 0.5, RhoD: 0.25}
	p := cobtree.NewPMA("pma-driver", *itemSize, *itemCount, *redundancy, density, cache)

	order := make([]int, *itemCount)
	for i := range order {
		order[i] = i
	}
	if *random {
		rand.New(rand.NewSource(1)).Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	item := make([]byte, *itemSize)
	for _, v := range order {
		// the driver only measures PMA mechanics, not a keyed layer, so
		// every item lands at the tail of the last non-empty segment.
		seg := p.LastNonEmptySegment()
		pos := p.SegmentSize() - p.ItemCount(seg) - 1
		if pos < 0 {
			seg++
			pos = p.SegmentSize() - 1
		}
		if _, err := p.Add(item, seg, pos); err != nil {
			fmt.Fprintf(os.Stderr, "add failed after %d items: %v\n", v, err)
			os.Exit(1)
		}
	}

	fmt.Printf("segments: %d (size %d)\n", p.SegmentCount(), p.SegmentSize())
	fmt.Printf("inserted data size: %s\n", humanize.Bytes(uint64(*itemCount**itemSize)))
	fmt.Printf("block transfers: %d\n", cache.RecordedBlockTransfer())
}
