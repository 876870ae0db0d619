package recorder

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestDedupCache_SeenOrRecord(t *testing.T) {
	c := NewDedupCache(10)
	fp := FingerprintOf([]byte("segment"))

	if c.SeenOrRecord(fp) {
		t.Error("first sighting should not be reported as seen")
	}
	if !c.SeenOrRecord(fp) {
		t.Error("second sighting should be reported as seen")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestDedupCache_clearsWhenOverCapacity(t *testing.T) {
	const max = 3
	c := NewDedupCache(max)
	for i := 0; i <= max; i++ {
		c.SeenOrRecord(Fingerprint(i))
	}
	if c.Len() != max+1 {
		t.Fatalf("Len after %d inserts = %d, want %d", max+1, c.Len(), max+1)
	}

	c.SeenOrRecord(Fingerprint(100))
	if c.Len() != 1 {
		t.Errorf("Len after overflow insert = %d, want 1", c.Len())
	}
	if c.SeenOrRecord(Fingerprint(0)) {
		t.Error("fingerprint from a cleared epoch should be accepted again")
	}
}

func TestDedupCache_Forget(t *testing.T) {
	c := NewDedupCache(10)
	c.SeenOrRecord(1)
	c.Forget(1)
	if c.SeenOrRecord(1) {
		t.Error("forgotten fingerprint should be accepted again")
	}
}

func TestDedupCache_concurrentSameFingerprint(t *testing.T) {
	c := NewDedupCache(500)
	fp := FingerprintOf([]byte("same bytes"))

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.SeenOrRecord(fp) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Errorf("accepted %d times, want exactly 1", accepted.Load())
	}
}

func TestFingerprintOf(t *testing.T) {
	if FingerprintOf([]byte("a")) == FingerprintOf([]byte("b")) {
		t.Error("different content should produce different fingerprints")
	}
	if FingerprintOf([]byte("a")) != FingerprintOf([]byte("a")) {
		t.Error("fingerprint must be deterministic within a process")
	}
}
