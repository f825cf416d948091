package syncfence

import (
	"testing"
	"time"

	"github.com/gogpu/hwc/types"
)

func newTestTimeline(t *testing.T) *Timeline {
	t.Helper()
	tl, err := NewTimeline()
	if err != nil {
		t.Fatalf("NewTimeline() error = %v", err)
	}
	t.Cleanup(func() { _ = tl.Close() })
	return tl
}

func TestMergeWithInvalidReturnsOtherUnchanged(t *testing.T) {
	tl := newTestTimeline(t)
	f := tl.NextPoint()

	if got := tl.Merge(f, types.InvalidFence); got != f {
		t.Errorf("Merge(f, invalid) = %v, want %v", got, f)
	}
	if got := tl.Merge(types.InvalidFence, f); got != f {
		t.Errorf("Merge(invalid, f) = %v, want %v", got, f)
	}
}

func TestMergeIsCommutative(t *testing.T) {
	tl := newTestTimeline(t)
	a := tl.NextPoint()
	b := tl.NextPoint()

	if tl.Merge(a, b) != tl.Merge(b, a) {
		t.Errorf("Merge is not commutative")
	}
}

func TestMergeSignalsOnlyAfterBothSignal(t *testing.T) {
	tl := newTestTimeline(t)
	a := tl.NextPoint()
	b := tl.NextPoint()
	merged := tl.Merge(a, b)

	tl.SignalTo(int64(a))
	if tl.Signalled(merged) {
		t.Errorf("merged fence signalled before both inputs signalled")
	}

	tl.SignalTo(int64(b))
	if !tl.Signalled(merged) {
		t.Errorf("merged fence should be signalled once both inputs have signalled")
	}
}

func TestWaitUnblocksOnSignal(t *testing.T) {
	tl := newTestTimeline(t)
	f := tl.NextPoint()

	done := make(chan struct{})
	go func() {
		tl.Wait(f)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Wait returned before Signal was called")
	case <-time.After(20 * time.Millisecond):
	}

	tl.Signal()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Wait did not unblock after Signal")
	}
}

func TestWaitOnAlreadySignalledFenceReturnsImmediately(t *testing.T) {
	tl := newTestTimeline(t)
	f := tl.NextPoint()
	tl.Signal()

	done := make(chan struct{})
	go func() {
		tl.Wait(f)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Wait on already-signalled fence should return immediately")
	}
}
