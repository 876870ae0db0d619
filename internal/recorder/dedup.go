package recorder

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies segment content for deduplication only. It is not
// stable across processes and must not be persisted.
type Fingerprint uint64

// FingerprintOf hashes segment bytes.
func FingerprintOf(data []byte) Fingerprint {
	return Fingerprint(xxhash.Sum64(data))
}

// DedupCache remembers fingerprints of saved segments. When it grows past
// its capacity it forgets everything at once, so a very old segment seen
// again after a clear is downloaded again. Safe for concurrent use.
type DedupCache struct {
	mu        sync.Mutex
	seen      map[Fingerprint]struct{}
	maxHashes int
}

// NewDedupCache returns an empty cache holding roughly maxHashes fingerprints.
func NewDedupCache(maxHashes int) *DedupCache {
	if maxHashes <= 0 {
		maxHashes = DefaultMaxHashes
	}
	return &DedupCache{
		seen:      make(map[Fingerprint]struct{}),
		maxHashes: maxHashes,
	}
}

// SeenOrRecord returns true if fp is already known and the segment must be
// skipped. Otherwise it records fp, clearing the cache first if it holds
// more than maxHashes entries, and returns false.
func (c *DedupCache) SeenOrRecord(fp Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[fp]; ok {
		return true
	}
	if len(c.seen) > c.maxHashes {
		clear(c.seen)
	}
	c.seen[fp] = struct{}{}
	return false
}

// Forget removes fp, e.g. after the write it guarded failed.
func (c *DedupCache) Forget(fp Fingerprint) {
	c.mu.Lock()
	delete(c.seen, fp)
	c.mu.Unlock()
}

// Len returns the number of remembered fingerprints.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
