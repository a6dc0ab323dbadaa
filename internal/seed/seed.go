// Package seed owns the global seed that every random stream in the module
// derives from.
package seed

import (
	"hash/fnv"
	"math/rand"
	"sync"
)

// DefaultSeed is used until Set is called.
const DefaultSeed int64 = 42

// Well-known stream names.
const (
	StreamInit    = "init"
	StreamShuffle = "shuffle"
	StreamDropout = "dropout"
	StreamData    = "data"
	StreamSplit   = "split"
)

var (
	mu      sync.Mutex
	current = DefaultSeed
)

// Set reseeds all streams. Generators handed out before the call keep their
// old sequence.
func Set(seed int64) {
	mu.Lock()
	current = seed
	mu.Unlock()
}

// Current returns the active global seed.
func Current() int64 {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Stream returns a new generator for name. The same seed and name always
// yield the same sequence; different names yield independent sequences.
func Stream(name string) *rand.Rand {
	return rand.New(rand.NewSource(Derive(Current(), name)))
}

// Derive mixes seed with name into a per-stream seed.
func Derive(seed int64, name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return seed ^ int64(h.Sum64()&0x7fffffffffffffff)
}
