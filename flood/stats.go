package flood

import (
	"sync/atomic"
)

// Stats aggregates traffic across all workers. The zero value is ready to
// use. Safe for concurrent use.
type Stats struct {
	bytes atomic.Uint64
	ops   atomic.Uint64
}

// AddSent records one completed send of n bytes.
func (x *Stats) AddSent(n uint64) {
	x.bytes.Add(n)
	x.ops.Add(1)
}

// Snapshot returns the totals. The two counters are read independently, so
// they may be skewed by sends completing concurrently.
func (x *Stats) Snapshot() (bytes, ops uint64) {
	return x.bytes.Load(), x.ops.Load()
}
