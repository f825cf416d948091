// Package syncfence implements the compositor's fence/sync primitive: a
// monotonic timeline whose points are handed out as opaque fence handles
// (spec.md §4.1). It is grounded on the timeline-semaphore fence used by
// the GPU backends in this codebase, generalized from a GPU submission
// counter to a page-flip completion counter and backed by an eventfd
// instead of a driver wait primitive.
package syncfence

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gogpu/hwc/hwcerr"
	"github.com/gogpu/hwc/types"
)

// Timeline is a monotonically increasing counter whose points are exposed
// as fence handles. A fence signals once the timeline's signalled value
// reaches or exceeds the point it was issued at. Timeline is safe for
// concurrent use.
type Timeline struct {
	mu        sync.Mutex
	next      int64
	signalled int64
	waiters   map[int64][]chan struct{}
	efd       int
}

// NewTimeline creates a timeline together with a Linux eventfd that Signal
// writes to on each advance. Wait does not use the eventfd: waiters block
// on a channel that Signal or SignalTo closes.
func NewTimeline() (*Timeline, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, hwcerr.Wrap("syncfence.NewTimeline", hwcerr.KindFenceCreateFailed, err)
	}
	return &Timeline{
		efd:     fd,
		waiters: make(map[int64][]chan struct{}),
	}, nil
}

// Close releases the timeline's eventfd.
func (t *Timeline) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.efd == 0 {
		return nil
	}
	err := unix.Close(t.efd)
	t.efd = 0
	return err
}

// NextPoint advances the timeline counter and returns a fence tied to that
// new point. The fence signals once a future Signal call reaches or passes
// this point.
func (t *Timeline) NextPoint() types.Fence {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	return types.Fence(t.next)
}

// Signal advances the currently-signalled point to the timeline's latest
// issued counter value, and wakes every waiter whose point has now passed.
func (t *Timeline) Signal() {
	t.mu.Lock()
	point := t.next
	if point <= t.signalled {
		t.mu.Unlock()
		return
	}
	t.signalled = point

	var ready [][]chan struct{}
	for p, chans := range t.waiters {
		if p <= t.signalled {
			ready = append(ready, chans)
			delete(t.waiters, p)
		}
	}
	efd := t.efd
	t.mu.Unlock()

	for _, chans := range ready {
		for _, c := range chans {
			close(c)
		}
	}
	if efd != 0 {
		var one [8]byte
		one[0] = 1
		_, _ = unix.Write(efd, one[:])
	}
}

// SignalTo advances the signalled point directly to point, used when the
// caller (e.g. the page-flip handler) knows exactly which counter value
// just completed rather than "the latest issued".
func (t *Timeline) SignalTo(point int64) {
	t.mu.Lock()
	if point <= t.signalled {
		t.mu.Unlock()
		return
	}
	t.signalled = point

	var ready [][]chan struct{}
	for p, chans := range t.waiters {
		if p <= t.signalled {
			ready = append(ready, chans)
			delete(t.waiters, p)
		}
	}
	t.mu.Unlock()

	for _, chans := range ready {
		for _, c := range chans {
			close(c)
		}
	}
}

// Signalled reports whether fence f has already signalled.
func (t *Timeline) Signalled(f types.Fence) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(f) <= t.signalled
}

// Wait blocks until fence f signals. It is only valid for fences issued by
// this timeline.
func (t *Timeline) Wait(f types.Fence) {
	t.mu.Lock()
	if int64(f) <= t.signalled {
		t.mu.Unlock()
		return
	}
	c := make(chan struct{})
	t.waiters[int64(f)] = append(t.waiters[int64(f)], c)
	t.mu.Unlock()
	<-c
}

// Merge produces a fence that signals once both a and b have signalled.
// Merge is commutative. Per spec, merging with an invalid (negative)
// handle returns the other handle unchanged — there is nothing to wait on
// beyond what the valid handle already represents.
func (t *Timeline) Merge(a, b types.Fence) types.Fence {
	if !a.Valid() {
		return b
	}
	if !b.Valid() {
		return a
	}
	if a >= b {
		return a
	}
	return b
}

func (t *Timeline) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("Timeline(next=%d, signalled=%d)", t.next, t.signalled)
}
