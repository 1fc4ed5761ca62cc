// Command veb-driver inserts a sequence of keys into a van Emde Boas
// layout tree and verifies every key is still reachable afterward.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/nikandfor/tlog"

	cobtree "github.com/hugy718/cache-oblivious-btree"
)

func main() {
	var (
		keyCount  = flag.Int("n", 10000, "number of keys to insert")
		fanout    = flag.Int("fanout", 4, "node fanout")
		cacheSize = flag.Int64("cache", 1<<20, "cache capacity in bytes")
		verbosity = flag.String("v", "", "tlog verbosity topics")
	)
	flag.Parse()

	tlog.SetVerbosity(*verbosity)
	cobtree.SetLogger(tlog.DefaultLogger)

	cache := cobtree.NewCache(*cacheSize)
	density := cobtree.DensityOptions{TauD: 1.0, Tau0: 0.75, Rho0: 0.5, RhoD: 0.25}
	tree := cobtree.NewTree("veb-driver", *fanout, *keyCount, 2.0, density, cache)

	keys := rand.New(rand.NewSource(1)).Perm(*keyCount)
	for _, k := range keys {
		if err := tree.Insert(uint64(k), uint64(k)); err != nil {
			fmt.Fprintf(os.Stderr, "insert %d failed: %v\n", k, err)
			os.Exit(1)
		}
	}

	mismatches := 0
	for _, k := range keys {
		value, _, matchKey := tree.Get(uint64(k))
		if !matchKey || value != uint64(k) {
			mismatches++
		}
	}

	fmt.Printf("inserted %d keys, %d mismatches on readback\n", *keyCount, mismatches)
	fmt.Printf("block transfers: %d\n", cache.RecordedBlockTransfer())
}
