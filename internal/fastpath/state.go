package fastpath

import "microcosm/internal/proc"

// MRCount is the number of message registers per thread. Architecture
// dependent in a real kernel; fixed here for the simulation.
const MRCount = 8

// Status is a thread's scheduling state as seen by the fastpath.
type Status int

const (
	// StatusRunning marks the thread as on-CPU.
	StatusRunning Status = iota
	// StatusBlocked marks the thread as descheduled.
	StatusBlocked
	// StatusSendBlocked marks the thread as parked in a send rendezvous.
	StatusSendBlocked
	// StatusRecvBlocked marks the thread as parked awaiting a message.
	StatusRecvBlocked
)

// EndpointState is the operational mode of an IPC endpoint.
type EndpointState int

const (
	// EndpointIdle means no thread is parked on the endpoint.
	EndpointIdle EndpointState = iota
	// EndpointSend means senders are queued waiting for a receiver.
	EndpointSend
	// EndpointRecv means receivers are queued awaiting a message.
	EndpointRecv
)

// CapType identifies the kernel object class a capability names.
type CapType int

// CapEndpoint is the only capability type the fastpath accepts.
const CapEndpoint CapType = iota

// Rights is the capability rights bitmask. Write conveys the right to send.
type Rights struct {
	Read       bool
	Write      bool
	Grant      bool
	GrantReply bool
}

// Capability is the access token presented by a sender. Supplied by the
// capability subsystem and read-only to the fastpath.
type Capability struct {
	CPtr   uint32
	Type   CapType
	Rights Rights
	Object uint32
	Badge  uint32
}

// Thread is a snapshot of one thread's fastpath-relevant state.
type Thread struct {
	TID      proc.PID
	Status   Status
	Priority uint8
	Domain   uint16
	VSpace   uint32
	Fault    *int
	Core     uint8
	Badge    uint32
	ReplyTo  proc.PID
	MRs      [MRCount]uint64
}

// Endpoint is an IPC rendezvous point holding queued receiver thread ids.
type Endpoint struct {
	ID    uint32
	Queue []proc.PID
	State EndpointState
}

// State is one in-flight IPC attempt. It is stack-scoped: constructed per
// attempt, mutated only after admission passes, and discarded afterwards.
type State struct {
	Sender    Thread
	Receiver  Thread
	Endpoint  Endpoint
	Cap       Capability
	MsgLen    int
	ExtraCaps int

	// MsgRegion is the configured zero-copy transfer region; L1 through L3
	// are the shrinking fallback cache tiers consulted when the per-core
	// ring has no room.
	MsgRegion Region
	L1        Region
	L2        Region
	L3        Region

	// CurrentTID records the thread left running after a successful
	// hand-off.
	CurrentTID proc.PID

	// Route records which transfer path carried the registers on success.
	Route Route
}

// Route identifies the transfer path taken by a successful attempt.
type Route int

const (
	// RouteNone: no transfer has happened yet.
	RouteNone Route = iota
	// RouteRing: the sending core's message ring had room (cache hit).
	RouteRing
	// RouteL1, RouteL2, RouteL3: spill through the numbered region tier.
	RouteL1
	RouteL2
	RouteL3
	// RouteRegion: spill through the externally configured message region.
	RouteRegion
	// RouteDirect: bare register-to-register copy, no region qualified.
	RouteDirect
)

// SetMessageRegion configures the zero-copy message region for an attempt.
func SetMessageRegion(s *State, r Region) { s.MsgRegion = r }

// SelectCache returns the first fallback tier able to carry the message, in
// L1, L2, L3 order, along with its 1-based tier number. ok is false when no
// tier qualifies.
func SelectCache(s *State, msgWords int) (r Region, tier int, ok bool) {
	for i, candidate := range [...]Region{s.L1, s.L2, s.L3} {
		if candidate.ValidFor(msgWords) {
			return candidate, i + 1, true
		}
	}
	return Region{}, 0, false
}
