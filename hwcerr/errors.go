// Package hwcerr defines the error vocabulary shared across the compositor:
// a small set of sentinel Kinds plus an Error type that carries the failing
// operation and, when there is one, the underlying cause (spec.md §7).
package hwcerr

import (
	"errors"
	"fmt"
)

// Kind classifies a compositor error so callers can branch on outcome
// without string matching.
type Kind int

const (
	// KindBadHandle indicates a plane, display, or buffer id that is not
	// currently valid (never allocated, already released, or disconnected).
	KindBadHandle Kind = iota

	// KindNoPlane indicates layer validation could not run because the
	// display has no primary plane to seed it with.
	KindNoPlane

	// KindCommitFailed indicates the kernel rejected an atomic commit for
	// a reason other than EBUSY (invalid property, unsupported format, ...).
	KindCommitFailed

	// KindCommitBusy indicates the kernel returned EBUSY for an atomic
	// commit: another commit is still in flight on the same CRTC.
	KindCommitBusy

	// KindModeBlobFailed indicates creation or destruction of a mode
	// property blob failed.
	KindModeBlobFailed

	// KindFenceCreateFailed indicates the sync layer could not create or
	// merge a fence.
	KindFenceCreateFailed

	// KindHotplugReadFailed indicates the uevent/netlink hotplug socket
	// could not be read.
	KindHotplugReadFailed

	// KindDisconnected indicates an operation targeted a connector that is
	// not currently connected to a display.
	KindDisconnected
)

func (k Kind) String() string {
	switch k {
	case KindBadHandle:
		return "BadHandle"
	case KindNoPlane:
		return "NoPlane"
	case KindCommitFailed:
		return "CommitFailed"
	case KindCommitBusy:
		return "CommitBusy"
	case KindModeBlobFailed:
		return "ModeBlobFailed"
	case KindFenceCreateFailed:
		return "FenceCreateFailed"
	case KindHotplugReadFailed:
		return "HotplugReadFailed"
	case KindDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type returned by hwc operations. Op names the
// failing method (e.g. "Display.Present"), Kind classifies the failure, and
// Err carries the underlying cause when one exists (a syscall errno, an
// ioctl failure, ...).
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hwc: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("hwc: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind, so callers can write
// errors.Is(err, hwcerr.ErrCommitBusy).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error for op/kind with no wrapped cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error for op/kind wrapping cause.
func Wrap(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// Sentinel errors for use with errors.Is against an arbitrary op/cause.
var (
	ErrBadHandle         = &Error{Op: "", Kind: KindBadHandle}
	ErrNoPlane           = &Error{Op: "", Kind: KindNoPlane}
	ErrCommitFailed      = &Error{Op: "", Kind: KindCommitFailed}
	ErrCommitBusy        = &Error{Op: "", Kind: KindCommitBusy}
	ErrModeBlobFailed    = &Error{Op: "", Kind: KindModeBlobFailed}
	ErrFenceCreateFailed = &Error{Op: "", Kind: KindFenceCreateFailed}
	ErrHotplugReadFailed = &Error{Op: "", Kind: KindHotplugReadFailed}
	ErrDisconnected      = &Error{Op: "", Kind: KindDisconnected}
)

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
