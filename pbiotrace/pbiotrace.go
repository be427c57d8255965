// Package pbiotrace provides an optional fixed-capacity, overwrite-oldest
// ring buffer of per-tick control samples, for offline inspection of a
// Controller's behavior. The locking discipline mirrors
// x/marshaller/storage.memoryStorage: a single mutex guarding a plain slice,
// sized once at construction.
package pbiotrace

import (
	"sync"

	"github.com/itohio/pbio"
)

// Sample is one Controller.Tick() observation.
type Sample struct {
	NowUs           int64
	Count, CountRef int32
	Rate, RateRef   int32
	Duty            int32
	Stall           pbio.StallFlags
}

// TickTrace is a fixed-capacity ring buffer of Samples. The zero value is
// not usable; construct with NewTickTrace.
type TickTrace struct {
	mu     sync.Mutex
	buf    []Sample
	next   int
	filled int
}

// NewTickTrace returns a TickTrace holding at most capacity samples.
func NewTickTrace(capacity int) *TickTrace {
	if capacity <= 0 {
		capacity = 1
	}
	return &TickTrace{buf: make([]Sample, capacity)}
}

// Record implements the tickRecorder interface Controller.SetTrace expects.
func (t *TickTrace) Record(nowUs int64, count, countRef, rate, rateRef, duty int32, stall pbio.StallFlags) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = Sample{
		NowUs:    nowUs,
		Count:    count,
		CountRef: countRef,
		Rate:     rate,
		RateRef:  rateRef,
		Duty:     duty,
		Stall:    stall,
	}
	t.next = (t.next + 1) % len(t.buf)
	if t.filled < len(t.buf) {
		t.filled++
	}
}

// Snapshot returns the recorded samples in chronological order. The
// returned slice is a copy; mutating it does not affect the trace.
func (t *TickTrace) Snapshot() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, t.filled)
	if t.filled < len(t.buf) {
		copy(out, t.buf[:t.filled])
		return out
	}
	// Full buffer: oldest sample is at t.next, wrap from there.
	n := copy(out, t.buf[t.next:])
	copy(out[n:], t.buf[:t.next])
	return out
}

// Len returns the number of samples currently held.
func (t *TickTrace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filled
}
