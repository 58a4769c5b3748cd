package testutil

import (
	"sync"
	"testing"
)

func TestDeterministicClock_StartsAtOne(t *testing.T) {
	c := NewDeterministicClock()

	if got := c.Next(); got != 1 {
		t.Errorf("first Next() = %d, want 1", got)
	}
	if got := c.Next(); got != 2 {
		t.Errorf("second Next() = %d, want 2", got)
	}
	if got := c.Current(); got != 2 {
		t.Errorf("Current() = %d, want 2", got)
	}
}

func TestDeterministicClock_Reset(t *testing.T) {
	c := NewDeterministicClock()
	c.Next()
	c.Next()

	c.Reset()

	if got := c.Current(); got != 0 {
		t.Errorf("Current() after Reset = %d, want 0", got)
	}
	if got := c.Next(); got != 1 {
		t.Errorf("Next() after Reset = %d, want 1", got)
	}
}

func TestDeterministicClock_ConcurrentUnique(t *testing.T) {
	c := NewDeterministicClock()
	const n = 100

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq := c.Next()
			mu.Lock()
			defer mu.Unlock()
			if seen[seq] {
				t.Errorf("duplicate seq %d", seq)
			}
			seen[seq] = true
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("got %d unique seqs, want %d", len(seen), n)
	}
}
