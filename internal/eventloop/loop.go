// Package eventloop runs the single dedicated OS thread that watches a
// display manager's DRM file descriptor and hotplug socket (spec.md
// §4.8/§5): page-flip event draining and hotplug rescans run on this
// thread. Atomic commits and property reads issued by Display.Present,
// SetActiveConfig and SetDpms run on the calling goroutine instead,
// serialized per display by that display's mutex, not on this thread.
//
// Its shape — a goroutine locked to an OS thread via
// runtime.LockOSThread, draining a channel of queued closures — is
// grounded on this codebase's internal/thread.Thread, generalized from
// "GPU command thread" to "DRM event thread": instead of only draining a
// work queue, it also epoll-waits on the DRM fd and a hotplug netlink
// socket so kernel events are dispatched from this one thread.
package eventloop

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Handlers are the callbacks invoked on the event-loop thread when its
// watched file descriptors become readable.
type Handlers struct {
	// OnDRMEvent is invoked when the DRM fd has page-flip/vblank events
	// to drain; the handler is responsible for calling
	// drmHandleEvent-equivalent logic and is expected to read until
	// EAGAIN.
	OnDRMEvent func()

	// OnHotplug is invoked when the hotplug netlink socket has a
	// connector-change datagram waiting.
	OnHotplug func()
}

// Loop is the event-loop thread: one goroutine locked to an OS thread,
// epoll-waiting over the DRM fd, an optional hotplug fd, and an internal
// wake fd used to unblock EpollWait when work is queued via Call/CallAsync.
type Loop struct {
	funcs   chan func()
	done    chan struct{}
	running atomic.Bool

	epfd    int
	wakeFD  int
	drmFD   int
	hotplug int
}

// New creates and starts an event loop watching drmFD for page-flip
// events. hotplugFD may be -1 if the caller has no hotplug socket (e.g.
// under a headless/virtual display).
func New(drmFD, hotplugFD int, h Handlers) (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventloop: epoll_create1: %w", err)
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventloop: eventfd: %w", err)
	}

	l := &Loop{
		funcs:   make(chan func(), 16),
		done:    make(chan struct{}),
		epfd:    epfd,
		wakeFD:  wakeFD,
		drmFD:   drmFD,
		hotplug: hotplugFD,
	}
	l.running.Store(true)

	for _, fd := range []int{wakeFD, drmFD, hotplugFD} {
		if fd < 0 {
			continue
		}
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			unix.Close(epfd)
			unix.Close(wakeFD)
			return nil, fmt.Errorf("eventloop: epoll_ctl add fd %d: %w", fd, err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go l.run(h, &wg)
	wg.Wait()

	return l, nil
}

func (l *Loop) run(h Handlers, wg *sync.WaitGroup) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	wg.Done()

	events := make([]unix.EpollEvent, 8)
	for {
		select {
		case <-l.done:
			return
		default:
		}

		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch fd {
			case l.wakeFD:
				var buf [8]byte
				_, _ = unix.Read(l.wakeFD, buf[:])
				l.drainFuncs()
			case l.drmFD:
				if h.OnDRMEvent != nil {
					h.OnDRMEvent()
				}
			case l.hotplug:
				if h.OnHotplug != nil {
					h.OnHotplug()
				}
			}
		}

		select {
		case <-l.done:
			return
		default:
		}
	}
}

func (l *Loop) drainFuncs() {
	for {
		select {
		case f := <-l.funcs:
			f()
		default:
			return
		}
	}
}

// Call queues f to run on the event-loop thread and blocks until it
// returns.
func (l *Loop) Call(f func()) {
	if !l.running.Load() {
		return
	}
	done := make(chan struct{})
	l.funcs <- func() {
		f()
		close(done)
	}
	l.wake()
	<-done
}

// CallAsync queues f to run on the event-loop thread without waiting for
// it to complete.
func (l *Loop) CallAsync(f func()) {
	if !l.running.Load() {
		return
	}
	l.funcs <- f
	l.wake()
}

func (l *Loop) wake() {
	var one [8]byte
	one[0] = 1
	_, _ = unix.Write(l.wakeFD, one[:])
}

// Close stops the event loop and releases its epoll and wake file
// descriptors. It does not close drmFD or the hotplug fd, which the
// caller owns.
func (l *Loop) Close() error {
	if !l.running.Swap(false) {
		return nil
	}
	close(l.done)
	l.wake()
	unix.Close(l.wakeFD)
	return unix.Close(l.epfd)
}
