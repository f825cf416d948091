package hwc

import (
	"fmt"
	"sync"

	"github.com/gogpu/hwc/drmkms"
	"github.com/gogpu/hwc/hwcerr"
	"github.com/gogpu/hwc/hwclog"
	"github.com/gogpu/hwc/internal/compositor"
	"github.com/gogpu/hwc/internal/pageflip"
	"github.com/gogpu/hwc/internal/plane"
	"github.com/gogpu/hwc/internal/syncfence"
	"github.com/gogpu/hwc/nativebuffer"
	"github.com/gogpu/hwc/types"
)

// internalDisplay drives the present pipeline for one CRTC bound to a real
// connector (spec.md §4.7's InternalDisplay::Present, §9's "Internal"
// tagged-variant case).
type internalDisplay struct {
	id          uint32 // == connectorID; the pageflip.Registry's display key
	connectorID uint32
	crtcID      uint32

	mgr       *plane.Manager
	comp      *compositor.Compositor
	timeline  *syncfence.Timeline
	pageflips *pageflip.Registry
	drm       *drmkms.Device
	importer  nativebuffer.Handler

	modes    []drmkms.ModeInfo
	mmWidth  uint32
	mmHeight uint32

	mu            sync.Mutex
	activeModeIdx int
	modeBlobID    uint32
	retire        types.Fence
	poweredOff    bool
	dpms          types.DpmsMode
	vsyncCB       func(timestampNanos int64)
	vsyncEnabled  bool
}

var _ Display = (*internalDisplay)(nil)

func (d *internalDisplay) onVsync(timestampNanos int64) {
	d.mu.Lock()
	cb := d.vsyncCB
	enabled := d.vsyncEnabled
	d.mu.Unlock()
	if enabled && cb != nil {
		cb(timestampNanos)
	}
}

// GetAttribute implements Display. Refresh is reported in milli-Hz; DpiX/
// DpiY are dots per 1000 inches, computed as pixels * 25400 / connector
// size in millimeters (spec.md §6).
func (d *internalDisplay) GetAttribute(attr types.Attribute) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.activeModeIdx < 0 || d.activeModeIdx >= len(d.modes) {
		return 0, hwcerr.New("Display.GetAttribute", hwcerr.KindDisconnected)
	}
	mode := d.modes[d.activeModeIdx]

	switch attr {
	case types.AttributeWidth:
		return int64(mode.Width), nil
	case types.AttributeHeight:
		return int64(mode.Height), nil
	case types.AttributeRefresh:
		return int64(mode.Refresh()), nil
	case types.AttributeDpiX:
		return dpiThousandths(int64(mode.Width), int64(d.mmWidth)), nil
	case types.AttributeDpiY:
		return dpiThousandths(int64(mode.Height), int64(d.mmHeight)), nil
	default:
		return 0, fmt.Errorf("hwc: Display.GetAttribute: unknown attribute %d", attr)
	}
}

func dpiThousandths(pixels, mm int64) int64 {
	if mm == 0 {
		return 0
	}
	return pixels * 25400 / mm
}

// SetActiveConfig implements Display: it uploads modeIndex's mode as a
// MODE_ID blob and commits a modeset binding the CRTC to that mode and the
// connector to the CRTC, then releases the previously active blob.
func (d *internalDisplay) SetActiveConfig(modeIndex int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if modeIndex < 0 || modeIndex >= len(d.modes) {
		return hwcerr.New("Display.SetActiveConfig", hwcerr.KindBadHandle)
	}
	mode := d.modes[modeIndex]

	blobID, err := d.drm.CreateModeBlob(mode)
	if err != nil {
		return hwcerr.Wrap("Display.SetActiveConfig", hwcerr.KindModeBlobFailed, err)
	}

	req := d.drm.NewModesetRequest()
	if err := req.SetCrtcProperty(d.crtcID, "MODE_ID", uint64(blobID)); err != nil {
		d.drm.DestroyModeBlob(blobID)
		return hwcerr.Wrap("Display.SetActiveConfig", hwcerr.KindCommitFailed, err)
	}
	if err := req.SetCrtcProperty(d.crtcID, "ACTIVE", 1); err != nil {
		d.drm.DestroyModeBlob(blobID)
		return hwcerr.Wrap("Display.SetActiveConfig", hwcerr.KindCommitFailed, err)
	}
	if err := req.SetConnectorProperty(d.connectorID, "CRTC_ID", uint64(d.crtcID)); err != nil {
		d.drm.DestroyModeBlob(blobID)
		return hwcerr.Wrap("Display.SetActiveConfig", hwcerr.KindCommitFailed, err)
	}

	if err := d.drm.CommitModeset(req); err != nil {
		d.drm.DestroyModeBlob(blobID)
		return hwcerr.Wrap("Display.SetActiveConfig", hwcerr.KindCommitFailed, err)
	}

	oldBlob := d.modeBlobID
	d.modeBlobID = blobID
	d.activeModeIdx = modeIndex
	d.poweredOff = false
	if oldBlob != 0 {
		if err := d.drm.DestroyModeBlob(oldBlob); err != nil {
			hwclog.Logger().Warn("failed to destroy previous mode blob", "blob", oldBlob, "error", err)
		}
	}
	return nil
}

// SetDpms implements Display. Atomic KMS has no standby/suspend state
// distinct from off at the property level, so Standby and Suspend are both
// realized as CRTC ACTIVE=0, same as Off; only On/not-On is distinguished.
func (d *internalDisplay) SetDpms(mode types.DpmsMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	active := uint64(1)
	if mode != types.DpmsOn {
		active = 0
	}

	req := d.drm.NewModesetRequest()
	if err := req.SetCrtcProperty(d.crtcID, "ACTIVE", active); err != nil {
		return hwcerr.Wrap("Display.SetDpms", hwcerr.KindCommitFailed, err)
	}
	if err := d.drm.CommitModeset(req); err != nil {
		return hwcerr.Wrap("Display.SetDpms", hwcerr.KindCommitFailed, err)
	}

	d.dpms = mode
	d.poweredOff = mode != types.DpmsOn
	if d.poweredOff {
		d.pageflips.Cancel(d.id)
	}
	return nil
}

func (d *internalDisplay) RegisterVsyncCallback(cb func(timestampNanos int64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vsyncCB = cb
}

func (d *internalDisplay) SetVsyncEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vsyncEnabled = enabled
}

// Present implements Display, following InternalDisplay::Present's
// pipeline (spec.md §4.7): import buffers, assign planes, composite
// whatever can't be scanned out directly, commit, and hand back the
// fence captured at the previous successful commit (spec.md §8 "Retire
// pairing") rather than one for the commit this call itself just issued,
// since that commit's success isn't yet known when Present must decide
// what to return.
func (d *internalDisplay) Present(layers []types.Layer) (types.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	retireToReturn := d.retire

	if d.poweredOff {
		for i := range layers {
			layers[i].ReleaseFence = types.InvalidFence
		}
		return retireToReturn, nil
	}

	resolved, err := d.mgr.BeginFrameUpdate(layers, d.importer)
	if err != nil {
		return types.InvalidFence, err
	}

	needsRender, composition, err := d.mgr.ValidateLayers(resolved)
	if err != nil {
		return types.InvalidFence, err
	}
	if needsRender {
		if err := d.comp.Draw(d.mgr, composition, resolved, d.importer); err != nil {
			return types.InvalidFence, err
		}
	}

	point := d.timeline.NextPoint()
	for i := range layers {
		layers[i].ReleaseFence = point
	}

	cookie, retireCh := d.pageflips.Submit(d.id, point, d.onVsync)

	commitErr := d.mgr.Commit(composition, false, cookie)
	d.mgr.Buffers.EndFrame()

	if commitErr != nil {
		d.pageflips.Drop(cookie)
		if kind, ok := hwcerr.KindOf(commitErr); ok && kind == hwcerr.KindCommitBusy {
			// Not an error (spec.md §7): the frame is dropped, release
			// fences reset to invalid, and the retire fence already
			// captured above for the last successful commit still holds.
			for i := range layers {
				layers[i].ReleaseFence = types.InvalidFence
			}
			return retireToReturn, nil
		}
		return types.InvalidFence, commitErr
	}

	go func() {
		f := <-retireCh
		if f.Valid() {
			d.timeline.SignalTo(int64(f))
		}
	}()

	d.retire = point
	return retireToReturn, nil
}
