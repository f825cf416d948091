// Package pageflip tracks in-flight atomic commits between the moment
// they are submitted to the kernel and the moment the DRM event thread
// observes their page-flip completion event, so the completion handler
// (running on the single event-loop thread, internal/eventloop) can hand
// the right retire fence and vsync notification back to whichever
// Display.Present call is waiting on it.
//
// The cookie → entry registry is grounded on this codebase's
// core.Hub/core.Registry ID-to-resource pattern, generalized from
// generation-counted GPU resource IDs to a simple monotonic cookie since
// page-flip cookies are single-use and never recycled across commits.
package pageflip

import (
	"sync"

	"github.com/gogpu/hwc/types"
)

// entry is one in-flight commit's bookkeeping. fence is decided by the
// caller at Submit time (normally a syncfence.Timeline point reserved
// just before the commit that produced this cookie), not by the event
// thread: the event thread only ever learns a cookie and a timestamp
// from the kernel, never a fence value.
type entry struct {
	displayID uint32
	fence     types.Fence
	retire    chan types.Fence
	vsync     func(timestampNanos int64)
}

// Registry maps an atomic commit's page-flip cookie to the display it was
// issued for and the channel its caller is blocked receiving a retire
// fence from. One Registry is shared by every display driven from the
// same event thread.
type Registry struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]*entry
}

// NewRegistry creates an empty page-flip registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[uint64]*entry)}
}

// Submit allocates a cookie for a commit about to be issued against
// displayID, remembering fence as the value to deliver once the flip
// completes and vsync (may be nil) as the callback to invoke with the
// event's timestamp. It returns the cookie to pass to the atomic commit
// ioctl's user_data field plus a channel that receives exactly one
// value: fence on Complete, or types.InvalidFence on Cancel.
func (r *Registry) Submit(displayID uint32, fence types.Fence, vsync func(timestampNanos int64)) (cookie uint64, retire <-chan types.Fence) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	cookie = r.next
	ch := make(chan types.Fence, 1)
	r.pending[cookie] = &entry{displayID: displayID, fence: fence, retire: ch, vsync: vsync}
	return cookie, ch
}

// Complete is called from the event thread when the kernel's page-flip
// event names cookie as done. It invokes the registered vsync callback
// (if any) with the event's timestamp and delivers the fence reserved at
// Submit time to the waiting Present call. A cookie with no matching
// entry is ignored: it belongs to a commit this process didn't submit,
// or one already cancelled.
func (r *Registry) Complete(cookie uint64, timestampNanos int64) {
	r.mu.Lock()
	e, ok := r.pending[cookie]
	if ok {
		delete(r.pending, cookie)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if e.vsync != nil {
		e.vsync(timestampNanos)
	}
	e.retire <- e.fence
}

// Drop discards a pending cookie without delivering anything to its
// retire channel, for a commit that failed synchronously, before the
// kernel could ever report a page-flip event for it.
func (r *Registry) Drop(cookie uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, cookie)
}

// Cancel drains every commit pending for displayID, delivering
// types.InvalidFence to each waiter, for use when a display is powered
// off or disconnected and will never see its page-flip event.
func (r *Registry) Cancel(displayID uint32) {
	r.mu.Lock()
	var drained []*entry
	for cookie, e := range r.pending {
		if e.displayID == displayID {
			drained = append(drained, e)
			delete(r.pending, cookie)
		}
	}
	r.mu.Unlock()

	for _, e := range drained {
		e.retire <- types.InvalidFence
	}
}

// Pending reports how many commits are currently in flight, for tests and
// diagnostics.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
