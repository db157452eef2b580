package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcosm/internal/proc"
)

// recordingHandler captures crash notifications for assertions.
type recordingHandler struct {
	crashed []proc.PID
	result  bool
}

func (h *recordingHandler) HandleCrash(pid proc.PID) bool {
	h.crashed = append(h.crashed, pid)
	return h.result
}

// TestScheduler_FIFO tests plain FIFO rotation: A, B, C enqueued in order
// come back from successive Preempt calls in that order, then nothing.
func TestScheduler_FIFO(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)
	s.Enqueue(3)

	got, ok := s.Preempt()
	require.True(t, ok)
	assert.Equal(t, proc.PID(1), got)

	got, ok = s.Preempt()
	require.True(t, ok)
	assert.Equal(t, proc.PID(2), got)

	got, ok = s.Preempt()
	require.True(t, ok)
	assert.Equal(t, proc.PID(3), got)
}

// TestScheduler_Preempt_RotatesCurrent tests that a runnable current thread
// goes to the tail before the head is promoted.
func TestScheduler_Preempt_RotatesCurrent(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)

	_, _ = s.Preempt() // 1 running
	got, ok := s.Preempt()
	require.True(t, ok)
	assert.Equal(t, proc.PID(2), got)

	// 1 was rotated to the tail and comes back around.
	got, ok = s.Preempt()
	require.True(t, ok)
	assert.Equal(t, proc.PID(1), got)
}

// TestScheduler_Preempt_Empty tests the nothing-runnable signal.
func TestScheduler_Preempt_Empty(t *testing.T) {
	s := New()

	got, ok := s.Preempt()
	assert.False(t, ok)
	assert.Equal(t, proc.None, got)
	assert.Equal(t, proc.None, s.Current())
}

// TestScheduler_Preempt_SoleThreadKeepsRunning tests that the only runnable
// thread is rotated through the queue and picked again.
func TestScheduler_Preempt_SoleThreadKeepsRunning(t *testing.T) {
	s := New()
	s.Enqueue(5)

	got, ok := s.Preempt()
	require.True(t, ok)
	require.Equal(t, proc.PID(5), got)

	got, ok = s.Preempt()
	assert.True(t, ok)
	assert.Equal(t, proc.PID(5), got)
}

// TestScheduler_Enqueue_NoDeduplication documents the permissive admission
// behavior: double-enqueuing an id yields two runnable entries. Intentional
// in the source model; callers own at-most-once admission.
func TestScheduler_Enqueue_NoDeduplication(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(1)

	assert.Equal(t, []proc.PID{1, 1}, s.Ready())

	got, ok := s.Preempt()
	require.True(t, ok)
	assert.Equal(t, proc.PID(1), got)
	// The duplicate entry is still queued.
	assert.Equal(t, proc.PID(1), s.Pick())
}

// TestScheduler_YieldTo tests the direct hand-off primitive.
func TestScheduler_YieldTo(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)
	s.Enqueue(3)
	_, _ = s.Preempt() // 1 running, queue [2 3]

	s.YieldTo(3)

	assert.Equal(t, proc.PID(3), s.Current(), "hand-off bypasses queue order")
	assert.Equal(t, []proc.PID{2, 1}, s.Ready(), "previous current appended to tail")
}

// TestScheduler_YieldTo_AbsentTarget tests that yielding to a thread not in
// the ready queue is a no-op.
func TestScheduler_YieldTo_AbsentTarget(t *testing.T) {
	s := New()
	s.Enqueue(1)
	_, _ = s.Preempt()

	s.YieldTo(42)

	assert.Equal(t, proc.PID(1), s.Current())
	assert.Empty(t, s.Ready())
}

// TestScheduler_BlockOn_Success tests recording a wait edge and descheduling.
func TestScheduler_BlockOn_Success(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)

	require.True(t, s.BlockOn(1, 2))

	assert.True(t, s.IsBlocked(1))
	assert.NotContains(t, s.Ready(), proc.PID(1))
	assert.Equal(t, 1, s.Graph().Edges())
}

// TestScheduler_BlockOn_CurrentPicksReplacement tests that blocking the
// running thread immediately schedules another.
func TestScheduler_BlockOn_CurrentPicksReplacement(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)
	_, _ = s.Preempt() // 1 running

	require.True(t, s.BlockOn(1, 2))

	assert.Equal(t, proc.PID(2), s.Current())
	assert.True(t, s.IsBlocked(1))
}

// TestScheduler_BlockOn_RefusesCycle tests deadlock avoidance by refusal:
// the thread stays runnable and no edge is recorded.
func TestScheduler_BlockOn_RefusesCycle(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)

	require.True(t, s.BlockOn(1, 2))
	s.Unblock(1) // 1 back in queue; edge gone

	require.True(t, s.BlockOn(2, 1))
	assert.False(t, s.BlockOn(1, 2), "1->2 would now close a cycle")

	assert.False(t, s.IsBlocked(1))
	assert.Contains(t, s.Ready(), proc.PID(1), "refused thread remains runnable")
	assert.Equal(t, 1, s.Graph().Edges())
}

// TestScheduler_BlockUnblockRoundTrip tests that block followed by unblock
// restores the thread to the ready queue exactly once and removes its edge.
func TestScheduler_BlockUnblockRoundTrip(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)

	require.True(t, s.BlockOn(1, 2))
	s.Unblock(1)

	assert.False(t, s.IsBlocked(1))
	count := 0
	for _, pid := range s.Ready() {
		if pid == 1 {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one ready entry after round trip")
	assert.Equal(t, 0, s.Graph().Edges())
}

// TestScheduler_Unblock_AppendsToTail tests that an unblocked thread does
// not preempt already-ready threads.
func TestScheduler_Unblock_AppendsToTail(t *testing.T) {
	s := New()
	s.Enqueue(1)
	s.Enqueue(2)
	s.Enqueue(3)

	require.True(t, s.BlockOn(1, 3))
	s.Unblock(1)

	assert.Equal(t, []proc.PID{2, 3, 1}, s.Ready())
}

// TestScheduler_Unblock_NotBlocked tests that unblocking a runnable thread
// is a no-op.
func TestScheduler_Unblock_NotBlocked(t *testing.T) {
	s := New()
	s.Enqueue(1)

	s.Unblock(1)

	assert.Equal(t, []proc.PID{1}, s.Ready())
}

// TestScheduler_Crash_Delegates tests pure delegation to the crash handler.
func TestScheduler_Crash_Delegates(t *testing.T) {
	h := &recordingHandler{result: true}
	s := New(WithCrashHandler(h))

	assert.True(t, s.Crash(9))
	assert.Equal(t, []proc.PID{9}, h.crashed)
}

// TestScheduler_Crash_NoHandler tests the unwired case.
func TestScheduler_Crash_NoHandler(t *testing.T) {
	s := New()
	assert.False(t, s.Crash(9))
}

// TestScheduler_Pick_DoesNotMutate tests the read-only head peek.
func TestScheduler_Pick_DoesNotMutate(t *testing.T) {
	s := New()
	assert.Equal(t, proc.None, s.Pick())

	s.Enqueue(4)
	assert.Equal(t, proc.PID(4), s.Pick())
	assert.Equal(t, []proc.PID{4}, s.Ready())
}
