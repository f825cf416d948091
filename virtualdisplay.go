package hwc

import (
	"sync"

	"github.com/gogpu/hwc/hwcerr"
	"github.com/gogpu/hwc/internal/compositor"
	"github.com/gogpu/hwc/internal/plane"
	"github.com/gogpu/hwc/internal/syncfence"
	"github.com/gogpu/hwc/nativebuffer"
	"github.com/gogpu/hwc/types"
)

// virtualDisplay composites every frame into an offscreen render target:
// no CRTC, no scanout planes, no atomic commit (spec.md §6
// Device::get_virtual_display, §9 "Virtual" tagged-variant case). It
// reuses internal/plane.Manager purely as a container for the buffer
// registry and framebuffer creator the compositor needs, via a single
// pseudo-plane descriptor that never reaches a real commit.
type virtualDisplay struct {
	id     uint32
	width  int
	height int

	pseudo   *plane.Descriptor
	mgr      *plane.Manager
	comp     *compositor.Compositor
	timeline *syncfence.Timeline
	importer nativebuffer.Handler

	mu      sync.Mutex
	retire  types.Fence
	vsyncCB func(timestampNanos int64)
}

var _ Display = (*virtualDisplay)(nil)

func (d *virtualDisplay) GetAttribute(attr types.Attribute) (int64, error) {
	switch attr {
	case types.AttributeWidth:
		return int64(d.width), nil
	case types.AttributeHeight:
		return int64(d.height), nil
	default:
		// A virtual display has no physical refresh rate or size, so
		// Refresh/DpiX/DpiY all report zero rather than an error.
		return 0, nil
	}
}

// SetActiveConfig implements Display: a virtual display has exactly one
// configuration, its fixed size, so any index but 0 is rejected.
func (d *virtualDisplay) SetActiveConfig(modeIndex int) error {
	if modeIndex != 0 {
		return hwcerr.New("Display.SetActiveConfig", hwcerr.KindBadHandle)
	}
	return nil
}

// SetDpms implements Display as a no-op: a virtual display has no power
// state to transition.
func (d *virtualDisplay) SetDpms(types.DpmsMode) error { return nil }

// RegisterVsyncCallback implements Display; the callback is stored but
// never invoked, since a virtual display never receives a page-flip event.
func (d *virtualDisplay) RegisterVsyncCallback(cb func(timestampNanos int64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vsyncCB = cb
}

func (d *virtualDisplay) SetVsyncEnabled(bool) {}

// Present composites layers into this display's offscreen target and
// signals its retire fence immediately, since there is no kernel page-flip
// to wait for. It keeps the same one-commit-lag retire contract as
// internalDisplay.Present for a uniform Display interface, even though the
// lag is not load-bearing here.
func (d *virtualDisplay) Present(layers []types.Layer) (types.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	retireToReturn := d.retire

	resolved, err := d.mgr.BeginFrameUpdate(layers, d.importer)
	if err != nil {
		return types.InvalidFence, err
	}

	if len(resolved) > 0 {
		indices := make([]int, len(resolved))
		for i, l := range resolved {
			indices[i] = l.Index
		}
		composition := []*plane.State{{Plane: d.pseudo, State: plane.StateRender, Layers: indices}}
		if err := d.comp.Draw(d.mgr, composition, resolved, d.importer); err != nil {
			return types.InvalidFence, err
		}
	}
	d.mgr.Buffers.EndFrame()

	point := d.timeline.NextPoint()
	for i := range layers {
		layers[i].ReleaseFence = point
	}
	d.timeline.SignalTo(int64(point))
	d.retire = point

	return retireToReturn, nil
}
