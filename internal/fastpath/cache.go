package fastpath

// QueueSlots is the fixed capacity of each per-core message ring.
const QueueSlots = 4

// coreQueue retains recently transferred messages for one core. Each slot
// keeps one full register set plus the length actually used.
type coreQueue struct {
	slots   [QueueSlots][MRCount]uint64
	lengths [QueueSlots]int
	used    int
}

func (q *coreQueue) full() bool { return q.used >= QueueSlots }

// put stores a message copy into the next free slot. Caller checks full().
func (q *coreQueue) put(mrs [MRCount]uint64, msgLen int) {
	q.slots[q.used] = mrs
	q.lengths[q.used] = msgLen
	q.used++
}

// CoreCaches holds one message ring per core. The fastpath consults the
// sending core's ring first; a ring with room is a cache hit, anything else
// spills to the region tiers.
//
// Constructed per kernel instance, never global, so tests start from empty
// rings and observe deterministic hit/fallback statistics.
type CoreCaches struct {
	queues []coreQueue
}

// NewCoreCaches returns empty rings for the given core count.
func NewCoreCaches(cores int) *CoreCaches {
	return &CoreCaches{queues: make([]coreQueue, cores)}
}

// Reset empties every ring.
func (c *CoreCaches) Reset() {
	for i := range c.queues {
		c.queues[i] = coreQueue{}
	}
}

// Used returns the number of populated slots on a core's ring, or 0 for an
// unknown core. Diagnostic accessor.
func (c *CoreCaches) Used(core uint8) int {
	if q := c.queue(core); q != nil {
		return q.used
	}
	return 0
}

// Slot returns a stored message copy and its length. Diagnostic accessor.
func (c *CoreCaches) Slot(core uint8, i int) ([MRCount]uint64, int) {
	q := c.queue(core)
	if q == nil || i < 0 || i >= q.used {
		return [MRCount]uint64{}, 0
	}
	return q.slots[i], q.lengths[i]
}

func (c *CoreCaches) queue(core uint8) *coreQueue {
	if int(core) >= len(c.queues) {
		return nil
	}
	return &c.queues[core]
}
