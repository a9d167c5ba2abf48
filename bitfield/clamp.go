package bitfield

import (
	"sort"
	"sync"
)

// ClampObserver is told about every value saturated during encoding.
type ClampObserver interface {
	Clamped(field string, value, stored int64)
}

// ClampCounter counts clamp events per field. It is safe for concurrent use.
type ClampCounter struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func NewClampCounter() *ClampCounter {
	return &ClampCounter{
		counts: map[string]uint64{},
	}
}

func (c *ClampCounter) Clamped(field string, value, stored int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]uint64{}
	}
	c.counts[field]++
}

func (c *ClampCounter) Count(field string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[field]
}

func (c *ClampCounter) Total() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint64
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Fields returns the names of all fields that were clamped, sorted.
func (c *ClampCounter) Fields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.counts))
	for name := range c.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *ClampCounter) Snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make(map[string]uint64, len(c.counts))
	for k, v := range c.counts {
		snap[k] = v
	}
	return snap
}

// SnapshotAndReset returns the counts and clears them in one step, so no
// event is lost between reading and clearing.
func (c *ClampCounter) SnapshotAndReset() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.counts
	if snap == nil {
		snap = map[string]uint64{}
	}
	c.counts = map[string]uint64{}
	return snap
}

func (c *ClampCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = map[string]uint64{}
}

// MultiObserver fans clamp events out to several observers.
type MultiObserver []ClampObserver

func (m MultiObserver) Clamped(field string, value, stored int64) {
	for _, o := range m {
		o.Clamped(field, value, stored)
	}
}
