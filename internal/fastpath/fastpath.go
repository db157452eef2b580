package fastpath

import "microcosm/internal/proc"

// Yielder is the scheduler seam for the direct hand-off performed as the
// final transformation step. Satisfied by *sched.Scheduler.
type Yielder interface {
	YieldTo(target proc.PID)
}

// check gates one precondition, recording the failure when it does not hold.
func check(ok bool, p Precondition, stats *Stats) bool {
	if ok {
		return true
	}
	stats.recordFailure(p)
	return false
}

// admissible evaluates the nine preconditions as a short-circuiting
// conjunction. It reads the state and never mutates it, so a rejected
// attempt leaves the caller's State byte-for-byte unchanged.
func admissible(s *State, stats *Stats) bool {
	return check(s.ExtraCaps == 0, P1, stats) &&
		check(s.MsgLen <= MRCount, P2, stats) &&
		check(s.Sender.Fault == nil, P3, stats) &&
		check(s.Cap.Type == CapEndpoint && s.Cap.Rights.Write, P4, stats) &&
		check(s.Endpoint.State == EndpointRecv && len(s.Endpoint.Queue) > 0, P5, stats) &&
		check(s.Receiver.Priority >= s.Sender.Priority, P6, stats) &&
		check(s.Sender.Domain == s.Receiver.Domain, P7, stats) &&
		check(true, P8, stats) && // reserved policy extension point
		check(s.Sender.Core == s.Receiver.Core, P9, stats)
}

// Execute runs one fastpath attempt against state.
//
// On any precondition failure the state is untouched and Execute returns
// false. On success the six transformation steps are applied in order and
// true is returned. There is no partial application: admission reads only,
// and the steps themselves cannot fail.
//
// caches, stats and yielder may each be nil: a nil cache set behaves as a
// full ring (every transfer falls back), nil stats skips counting, and a
// nil yielder limits the hand-off to the state's CurrentTID field.
func Execute(state *State, caches *CoreCaches, stats *Stats, yielder Yielder) bool {
	if !admissible(state, stats) {
		return false
	}

	dequeueReceiver(state)
	transferBadge(state)
	establishReply(state)
	copyMRs(state, caches, stats)
	updateThreadState(state)
	contextSwitch(state, yielder)

	stats.recordSuccess()
	return true
}

// dequeueReceiver removes the receiver from the endpoint wait queue and
// idles the endpoint when the queue drains.
func dequeueReceiver(s *State) {
	for i, tid := range s.Endpoint.Queue {
		if tid == s.Receiver.TID {
			s.Endpoint.Queue = append(s.Endpoint.Queue[:i], s.Endpoint.Queue[i+1:]...)
			break
		}
	}
	if len(s.Endpoint.Queue) == 0 {
		s.Endpoint.State = EndpointIdle
	}
}

// transferBadge delivers the capability badge to the receiver, identifying
// the sender without exposing the capability itself.
func transferBadge(s *State) { s.Receiver.Badge = s.Cap.Badge }

// establishReply links the sender to the receiver for the one-shot reply.
func establishReply(s *State) { s.Sender.ReplyTo = s.Receiver.TID }

// copyMRs transfers the message registers through the tiered cache: per-core
// ring when it has room (hit), otherwise the first qualifying region tier or
// a bare register copy (both fallback).
func copyMRs(s *State, caches *CoreCaches, stats *Stats) {
	words := s.MsgLen
	if words > MRCount {
		words = MRCount
	}
	for i := 0; i < words; i++ {
		s.Receiver.MRs[i] = s.Sender.MRs[i]
	}

	if caches != nil {
		if q := caches.queue(s.Sender.Core); q != nil && !q.full() {
			q.put(s.Sender.MRs, words)
			s.Route = RouteRing
			stats.recordHit()
			return
		}
	}

	// Ring has no room: spill through the first qualifying region tier,
	// then the configured message region, else the register copy above
	// already moved the message. All three spill routes count as fallback.
	if _, tier, ok := SelectCache(s, words); ok {
		s.Route = RouteL1 + Route(tier-1)
	} else if s.MsgRegion.ValidFor(words) {
		s.Route = RouteRegion
	} else {
		s.Route = RouteDirect
	}
	stats.recordFallback()
}

// updateThreadState applies synchronous-call semantics: the receiver runs,
// the sender blocks awaiting the reply.
func updateThreadState(s *State) {
	s.Receiver.Status = StatusRunning
	s.Sender.Status = StatusBlocked
}

// contextSwitch records the receiver as current and performs the scheduler
// hand-off.
func contextSwitch(s *State, yielder Yielder) {
	s.CurrentTID = s.Receiver.TID
	if yielder != nil {
		yielder.YieldTo(s.Receiver.TID)
	}
}
