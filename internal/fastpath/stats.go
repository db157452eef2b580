package fastpath

import "sync/atomic"

// Precondition indexes the nine admission gates for statistics.
type Precondition int

const (
	// P1: no extra capabilities in the transfer.
	P1 Precondition = iota
	// P2: message fits the sender's register capacity.
	P2
	// P3: sender has no outstanding fault.
	P3
	// P4: capability is endpoint-typed with send rights.
	P4
	// P5: endpoint is receiving with at least one queued receiver.
	P5
	// P6: receiver priority is not below sender priority.
	P6
	// P7: sender and receiver share a domain.
	P7
	// P8: reserved, always passes.
	P8
	// P9: sender and receiver share a core.
	P9

	// PreconditionCount is the number of admission gates.
	PreconditionCount
)

var preconditionNames = [PreconditionCount]string{
	"no_extra_caps",
	"msg_fits_registers",
	"no_fault",
	"endpoint_cap_with_send",
	"receiver_ready",
	"no_priority_inversion",
	"same_domain",
	"reserved",
	"same_core",
}

// String returns a stable label for metrics and logs.
func (p Precondition) String() string {
	if p < 0 || p >= PreconditionCount {
		return "unknown"
	}
	return preconditionNames[p]
}

// Stats counts fastpath outcomes. Counters are atomic so readers (metrics
// scrapes, tests) may observe them concurrently; they order nothing and must
// not be used to synchronize the primary state.
type Stats struct {
	success       atomic.Uint64
	failure       atomic.Uint64
	preconditions [PreconditionCount]atomic.Uint64
	hit           atomic.Uint64
	fallback      atomic.Uint64
}

// NewStats returns zeroed counters.
func NewStats() *Stats { return &Stats{} }

// Success returns the number of completed attempts.
func (s *Stats) Success() uint64 { return s.success.Load() }

// Failure returns the number of rejected attempts.
func (s *Stats) Failure() uint64 { return s.failure.Load() }

// PreconditionFailures returns how often one gate rejected an attempt.
func (s *Stats) PreconditionFailures(p Precondition) uint64 {
	if p < 0 || p >= PreconditionCount {
		return 0
	}
	return s.preconditions[p].Load()
}

// Hits returns the number of per-core ring transfers.
func (s *Stats) Hits() uint64 { return s.hit.Load() }

// Fallbacks returns the number of region-tier or register-copy transfers.
func (s *Stats) Fallbacks() uint64 { return s.fallback.Load() }

func (s *Stats) recordFailure(p Precondition) {
	if s == nil {
		return
	}
	s.failure.Add(1)
	s.preconditions[p].Add(1)
}

func (s *Stats) recordSuccess() {
	if s == nil {
		return
	}
	s.success.Add(1)
}

func (s *Stats) recordHit() {
	if s == nil {
		return
	}
	s.hit.Add(1)
}

func (s *Stats) recordFallback() {
	if s == nil {
		return
	}
	s.fallback.Add(1)
}
