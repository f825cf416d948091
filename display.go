package hwc

import "github.com/gogpu/hwc/types"

// Display is the per-connector present pipeline (spec.md §6, C7). Three
// concrete kinds share this single interface rather than a class
// hierarchy (spec.md §9 "Virtual inheritance" design note): an
// internalDisplay bound to a real CRTC/connector, a virtualDisplay that
// composites offscreen into render targets the Device allocates (it takes
// no caller-supplied destination buffer), and
// internal/headlessdisplay's stub for when nothing is connected.
type Display interface {
	// GetAttribute reports a display property. Width/Height are in
	// pixels, Refresh in milli-Hz, DpiX/DpiY in dots per 1000 inches.
	GetAttribute(attr types.Attribute) (int64, error)

	// SetActiveConfig selects one of the display's advertised modes by
	// index and performs the modeset to switch to it.
	SetActiveConfig(modeIndex int) error

	// SetDpms transitions the display's power state.
	SetDpms(mode types.DpmsMode) error

	// RegisterVsyncCallback installs the callback invoked with each
	// page-flip completion's timestamp, while vsync notification is
	// enabled (SetVsyncEnabled).
	RegisterVsyncCallback(cb func(timestampNanos int64))

	// SetVsyncEnabled toggles whether RegisterVsyncCallback's callback
	// fires on page-flip completion.
	SetVsyncEnabled(enabled bool)

	// Present submits one frame's layers, in bottom-to-top order,
	// mutating each layer's ReleaseFence in place. It returns the retire
	// fence captured at the previous successful commit (spec.md §4.7,
	// §8 "Retire pairing"); the very first Present on a display returns
	// types.InvalidFence.
	Present(layers []types.Layer) (types.Fence, error)
}
