package fieldunit

import (
	"sync"
	"testing"
	"time"
)

func TestPulseCounter_CountsEdges(t *testing.T) {
	c := NewPulseCounter()
	now := time.Now()
	c.now = func() time.Time {
		now = now.Add(20 * time.Millisecond)
		return now
	}

	for i := 0; i < 5; i++ {
		c.OnEdge()
	}
	if got := c.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5", got)
	}
}

func TestPulseCounter_DebouncesBounce(t *testing.T) {
	c := NewPulseCounter()
	base := time.Now()
	offset := time.Duration(0)
	c.now = func() time.Time { return base.Add(offset) }

	// A real edge followed by three switch bounces inside the window.
	c.OnEdge()
	for i := 0; i < 3; i++ {
		offset += 2 * time.Millisecond
		c.OnEdge()
	}
	// Then a genuine edge past the window.
	offset += 15 * time.Millisecond
	c.OnEdge()

	if got := c.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2 accepted edges", got)
	}
}

func TestPulseCounter_ReadAndReset(t *testing.T) {
	c := NewPulseCounter()
	now := time.Now()
	c.now = func() time.Time {
		now = now.Add(20 * time.Millisecond)
		return now
	}

	for i := 0; i < 9844; i++ {
		c.OnEdge()
	}

	if got := c.ReadAndReset(); got != 9844 {
		t.Errorf("ReadAndReset() = %d, want 9844", got)
	}
	if got := c.ReadAndReset(); got != 0 {
		t.Errorf("second ReadAndReset() = %d, want 0", got)
	}
}

func TestPulseCounter_ConcurrentEdgesAndResets(t *testing.T) {
	c := NewPulseCounter()
	c.debounce = 0 // every edge counts; this test is about atomicity

	const edges = 10000
	var wg sync.WaitGroup
	wg.Add(2)

	total := make(chan int64, 1)
	go func() {
		defer wg.Done()
		for i := 0; i < edges; i++ {
			c.OnEdge()
		}
	}()
	go func() {
		defer wg.Done()
		var sum int64
		for i := 0; i < 100; i++ {
			sum += c.ReadAndReset()
			time.Sleep(time.Microsecond)
		}
		total <- sum
	}()
	wg.Wait()

	// Whatever the interleaving, no edge is lost or double-counted.
	if sum := <-total + c.ReadAndReset(); sum != edges {
		t.Errorf("total counted = %d, want %d", sum, edges)
	}
}
