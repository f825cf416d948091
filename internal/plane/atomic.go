package plane

import "github.com/gogpu/hwc/types"

// AtomicRequest accumulates DRM atomic property writes for one commit
// attempt. It is implemented by drmkms's atomic request type (created by
// drmkms.Device.NewAtomicRequest); kept as an interface here
// so the plane manager never imports the DRM ioctl layer directly.
type AtomicRequest interface {
	// SetPlaneProperty queues a property write for planeID.
	SetPlaneProperty(planeID uint32, name string, value uint64) error
}

// Committer performs (or test-runs) an atomic commit built from an
// AtomicRequest, implemented by drmkms.Device.
type Committer interface {
	NewAtomicRequest() AtomicRequest

	// Commit submits req. If testOnly, the kernel validates the request
	// without applying it (DRM_MODE_ATOMIC_TEST_ONLY). allowModeset sets
	// DRM_MODE_ATOMIC_ALLOW_MODESET; otherwise DRM_MODE_ATOMIC_NONBLOCK is
	// used. cookie is an opaque user-data pointer threaded through to the
	// page-flip completion event when page-flip events are requested.
	Commit(req AtomicRequest, testOnly, allowModeset bool, pageFlipEvent bool, cookie uint64) error
}

// PlaneCaps describes what a hardware plane supports, used by
// Descriptor.ValidateLayer to reject layers the plane cannot scan out
// without a kernel round-trip.
type PlaneCaps struct {
	Formats       []types.PixelFormat
	MinWidth      uint32
	MaxWidth      uint32
	MinHeight     uint32
	MaxHeight     uint32
	SupportsAlpha bool
	SupportsCrop  bool
}
