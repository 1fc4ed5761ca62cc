// Command cobtree-driver runs an insert/lookup workload against the
// full three-layer CoBtree and prints block-transfer statistics,
// matching the S1-S4 style workloads spec's test drivers describe.
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
		recordCount = flag.Int("n", 10000, "number of records to insert")
		fanout      = flag.Int("fanout", 4, "vEB tree node fanout")
		cacheSize   = flag.Int64("cache", 1<<20, "cache capacity in bytes")
		random      = flag.Bool("random", true, "insert in random order instead of ascending")
		verbosity   = flag.String("v", "", "tlog verbosity topics")
	)
	flag.Parse()

	tlog.SetVerbosity(*verbosity)
	cobtree.SetLogger(tlog.DefaultLogger)

	cache := cobtree.NewCache(*cacheSize)
	density := cobtree.DensityOptions{TauD: 1.0, Tau0: 0.75, Rho0: 0.5, RhoD: 0.25}
	tree := cobtree.New("cobtree-driver", *recordCount, *fanout, cobtree.Sizing{}, density, cache)

	keys := make([]int, *recordCount)
	for i := range keys {
		keys[i] = i
	}
	if *random {
		rand.New(rand.NewSource(1)).Shuffle(len(keys), func(i, j int) {
			keys[i], keys[j] = keys[j], keys[i]
		})
	}

	cache.ResetBlockTransferStats()
	for _, k := range keys {
		if err := tree.Insert(uint64(k), uint64(k)*7); err != nil {
			fmt.Fprintf(os.Stderr, "insert %d failed: %v\n", k, err)
			os.Exit(1)
		}
	}
	insertTransfers := cache.RecordedBlockTransfer()

	cache.ResetBlockTransferStats()
	mismatches := 0
	for _, k := range keys {
		value, found := tree.Get(uint64(k))
		if !found || value != uint64(k)*7 {
			mismatches++
		}
	}
	lookupTransfers := cache.RecordedBlockTransfer()

	fmt.Printf("records: %d (%s)\n", *recordCount, humanize.Comma(int64(*recordCount)))
	fmt.Printf("mismatches on readback: %d\n", mismatches)
	fmt.Printf("insert block transfers: %d (%.2f per record)\n", insertTransfers, float64(insertTransfers)/float64(*recordCount))
	fmt.Printf("lookup block transfers: %d (%.2f per record)\n", lookupTransfers, float64(lookupTransfers)/float64(*recordCount))
}
