// Package headlessdisplay implements the stub display installed in place
// of a real one when a connector has no attached monitor (spec.md §4.8):
// every operation succeeds with inert results instead of returning an
// error, so a caller iterating Device.GetDisplay doesn't need to
// special-case "nothing plugged in". It satisfies hwc.Display structurally
// without importing the hwc package, avoiding an import cycle.
package headlessdisplay

import "github.com/gogpu/hwc/types"

// Display is a headless stand-in for one connector with nothing attached.
type Display struct {
	connectorID uint32
}

// New creates a headless stub standing in for connectorID.
func New(connectorID uint32) *Display {
	return &Display{connectorID: connectorID}
}

// GetAttribute always reports zero: a disconnected display has no mode to
// describe.
func (d *Display) GetAttribute(types.Attribute) (int64, error) { return 0, nil }

// SetActiveConfig is a no-op: there is no mode list to select from.
func (d *Display) SetActiveConfig(int) error { return nil }

// SetDpms is a no-op: there is no power state to transition.
func (d *Display) SetDpms(types.DpmsMode) error { return nil }

// RegisterVsyncCallback stores nothing; a headless display never vsyncs.
func (d *Display) RegisterVsyncCallback(func(timestampNanos int64)) {}

// SetVsyncEnabled is a no-op.
func (d *Display) SetVsyncEnabled(bool) {}

// Present accepts every layer and releases it immediately: no hardware
// backs this display, so nothing is ever worth waiting on.
func (d *Display) Present(layers []types.Layer) (types.Fence, error) {
	for i := range layers {
		layers[i].ReleaseFence = types.InvalidFence
	}
	return types.InvalidFence, nil
}
