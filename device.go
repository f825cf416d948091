package hwc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/gogpu/hwc/drmkms"
	"github.com/gogpu/hwc/hwcerr"
	"github.com/gogpu/hwc/hwclog"
	"github.com/gogpu/hwc/internal/compositor"
	"github.com/gogpu/hwc/internal/eventloop"
	"github.com/gogpu/hwc/internal/headlessdisplay"
	"github.com/gogpu/hwc/internal/pageflip"
	"github.com/gogpu/hwc/internal/plane"
	"github.com/gogpu/hwc/internal/syncfence"
	"github.com/gogpu/hwc/nativebuffer/dumb"
	"github.com/gogpu/hwc/render"
	"github.com/gogpu/hwc/render/software"
	"github.com/gogpu/hwc/types"
)

// Device owns one open DRM device node: its single event-loop thread
// (internal/eventloop), the connector/CRTC rebind state machine (spec.md
// §4.8), and every Display currently bound to it.
type Device struct {
	opts      Options
	drm       *drmkms.Device
	bufs      *dumb.Handler
	renderer  render.Renderer
	loop      *eventloop.Loop
	pageflips *pageflip.Registry
	hotplugFD int

	mu            sync.RWMutex
	order         []uint32 // connector IDs in first-seen order, GetDisplay's index space
	internal      map[uint32]*internalDisplay
	virtuals      map[uint32]*virtualDisplay
	nextVirtualID uint32

	closed atomic.Bool
}

// Initialize opens the DRM device named by opts.CardPath, starts its event
// thread, and performs an initial connector scan (spec.md §6
// Device::initialize).
func Initialize(opts Options) (*Device, error) {
	if opts.CardPath == "" {
		opts = DefaultOptions()
	}

	drmDev, err := drmkms.Open(opts.CardPath)
	if err != nil {
		return nil, hwcerr.Wrap("Device.Initialize", hwcerr.KindDisconnected, err)
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = software.New(nil)
	}

	d := &Device{
		opts:      opts,
		drm:       drmDev,
		bufs:      dumb.New(drmDev.FD()),
		renderer:  renderer,
		pageflips: pageflip.NewRegistry(),
		internal:  make(map[uint32]*internalDisplay),
		virtuals:  make(map[uint32]*virtualDisplay),
		hotplugFD: -1,
	}

	if fd, err := drmkms.OpenHotplugSocket(); err != nil {
		hwclog.Logger().Warn("hotplug monitoring unavailable, connector changes require a manual rescan", "error", err)
	} else {
		d.hotplugFD = fd
	}

	loop, err := eventloop.New(int(drmDev.FD()), d.hotplugFD, eventloop.Handlers{
		OnDRMEvent: d.handleDRMEvent,
		OnHotplug:  d.handleHotplug,
	})
	if err != nil {
		drmDev.Close()
		return nil, hwcerr.Wrap("Device.Initialize", hwcerr.KindDisconnected, err)
	}
	d.loop = loop

	if err := d.updateDisplayState(); err != nil {
		hwclog.Logger().Warn("initial connector scan failed", "error", err)
	}
	return d, nil
}

func (d *Device) handleDRMEvent() {
	if err := d.drm.ReadEvents(d.pageflips.Complete); err != nil {
		hwclog.Logger().Warn("failed draining DRM page-flip events", "error", err)
	}
}

func (d *Device) handleHotplug() {
	if err := drmkms.DrainHotplugSocket(d.hotplugFD); err != nil {
		hwclog.Logger().Warn("failed draining hotplug socket", "error", err)
		return
	}
	if err := d.updateDisplayState(); err != nil {
		hwclog.Logger().Warn("connector rescan failed", "error", err)
	}
}

// updateDisplayState re-enumerates every connector, binding a CRTC to each
// newly-connected one and tearing down the internalDisplay for any that
// went away. It mirrors GpuDevice::UpdateDisplayState's connector/encoder/
// CRTC matching loop (spec.md §4.8); GetDisplay takes a read lock against
// the same d.mu, so a Present in progress never observes a half-rebound
// display.
func (d *Device) updateDisplayState() error {
	res, err := d.drm.GetResources()
	if err != nil {
		return fmt.Errorf("hwc: Device.updateDisplayState: %w", err)
	}
	planeIDs, err := d.drm.PlaneResources()
	if err != nil {
		return fmt.Errorf("hwc: Device.updateDisplayState: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range res.Connectors {
		if !containsUint32(d.order, id) {
			d.order = append(d.order, id)
		}
	}

	usedCRTCs := make(map[uint32]bool, len(d.internal))
	for _, disp := range d.internal {
		usedCRTCs[disp.crtcID] = true
	}

	seen := make(map[uint32]bool, len(res.Connectors))
	for _, connectorID := range res.Connectors {
		seen[connectorID] = true

		info, err := d.drm.GetConnector(connectorID)
		if err != nil {
			hwclog.Logger().Warn("GETCONNECTOR failed", "connector", connectorID, "error", err)
			continue
		}

		existing, bound := d.internal[connectorID]
		if !info.Connected {
			if bound {
				d.teardownInternalLocked(existing)
			}
			continue
		}
		if bound {
			continue
		}

		crtcID, ok := d.pickCRTCLocked(res, info, usedCRTCs)
		if !ok {
			hwclog.Logger().Warn("connected connector has no free CRTC", "connector", connectorID)
			continue
		}

		disp, err := d.bindInternalDisplay(res, connectorID, crtcID, planeIDs)
		if err != nil {
			hwclog.Logger().Warn("failed to bind display", "connector", connectorID, "crtc", crtcID, "error", err)
			continue
		}
		usedCRTCs[crtcID] = true
		d.internal[connectorID] = disp
	}

	for connectorID, disp := range d.internal {
		if !seen[connectorID] {
			d.teardownInternalLocked(disp)
		}
	}
	return nil
}

// pickCRTCLocked prefers the CRTC the connector's encoder is already bound
// to (avoiding an unnecessary modeset on first scan) and otherwise picks
// the first free CRTC the encoder's possible-CRTCs mask allows.
func (d *Device) pickCRTCLocked(res drmkms.Resources, info drmkms.ConnectorInfo, used map[uint32]bool) (uint32, bool) {
	possible := ^uint32(0)
	if info.EncoderID != 0 {
		if enc, err := d.drm.GetEncoder(info.EncoderID); err == nil {
			possible = enc.PossibleCrtcs
			if enc.CrtcID != 0 && !used[enc.CrtcID] {
				return enc.CrtcID, true
			}
		}
	}
	for i, crtcID := range res.CRTCs {
		if used[crtcID] {
			continue
		}
		if possible&(1<<uint(i)) != 0 {
			return crtcID, true
		}
	}
	return 0, false
}

// bindInternalDisplay builds the plane manager, compositor, and fence
// timeline for a newly-connected connector/CRTC pair and performs its
// initial modeset against the connector's first advertised mode.
func (d *Device) bindInternalDisplay(res drmkms.Resources, connectorID, crtcID uint32, planeIDs []uint32) (*internalDisplay, error) {
	idx := crtcIndex(res, crtcID)
	if idx < 0 {
		return nil, fmt.Errorf("hwc: crtc %d not present in resources", crtcID)
	}
	bit := uint32(1) << uint(idx)

	var primary, overlay []*plane.Descriptor
	for _, planeID := range planeIDs {
		info, err := d.drm.GetPlane(planeID)
		if err != nil {
			hwclog.Logger().Warn("GETPLANE failed", "plane", planeID, "error", err)
			continue
		}
		if info.PossibleCRTCs&bit == 0 {
			continue
		}
		desc := &plane.Descriptor{
			ID:            planeID,
			PossibleCRTCs: info.PossibleCRTCs,
			Caps:          plane.PlaneCaps{SupportsCrop: true, SupportsAlpha: true},
		}
		if len(primary) == 0 {
			desc.Kind = plane.KindPrimary
			primary = append(primary, desc)
		} else {
			desc.Kind = plane.KindOverlay
			overlay = append(overlay, desc)
		}
	}
	if len(primary) == 0 {
		return nil, fmt.Errorf("hwc: crtc %d has no usable primary plane", crtcID)
	}

	mgr := plane.NewManager(crtcID, primary, overlay, nil, d.drm, d.drm)
	comp := compositor.New(d.renderer, d.bufs)
	timeline, err := syncfence.NewTimeline()
	if err != nil {
		return nil, err
	}

	modes, mmWidth, mmHeight, err := d.drm.GetConnectorModes(connectorID)
	if err != nil {
		timeline.Close()
		return nil, fmt.Errorf("hwc: GetConnectorModes(%d): %w", connectorID, err)
	}

	disp := &internalDisplay{
		id:            connectorID,
		connectorID:   connectorID,
		crtcID:        crtcID,
		mgr:           mgr,
		comp:          comp,
		timeline:      timeline,
		pageflips:     d.pageflips,
		drm:           d.drm,
		importer:      d.bufs,
		modes:         modes,
		mmWidth:       mmWidth,
		mmHeight:      mmHeight,
		activeModeIdx: -1,
		retire:        types.InvalidFence,
	}

	if len(modes) > 0 {
		if err := disp.SetActiveConfig(0); err != nil {
			hwclog.Logger().Warn("initial modeset failed", "connector", connectorID, "error", err)
		}
	}
	return disp, nil
}

func (d *Device) teardownInternalLocked(disp *internalDisplay) {
	delete(d.internal, disp.connectorID)
	d.pageflips.Cancel(disp.id)
	if err := disp.timeline.Close(); err != nil {
		hwclog.Logger().Warn("failed closing display timeline", "connector", disp.connectorID, "error", err)
	}
}

// GetDisplay returns the display bound to the id-th connector seen since
// Initialize (spec.md §6 Device::get_display). If that connector currently
// has nothing attached, a headless stub is returned instead of an error
// (spec.md §4.8, SUPPLEMENTED FEATURES), so callers don't need to special-
// case "nothing plugged in".
func (d *Device) GetDisplay(id uint32) (Display, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(id) >= len(d.order) {
		return nil, hwcerr.New("Device.GetDisplay", hwcerr.KindDisconnected)
	}
	connectorID := d.order[id]
	if disp, ok := d.internal[connectorID]; ok {
		return disp, nil
	}
	return headlessdisplay.New(connectorID), nil
}

// GetVirtualDisplay creates an offscreen display that composites every
// frame in software/GPU composition alone, with no CRTC or scanout planes
// behind it (spec.md §6 Device::get_virtual_display, §9 "Virtual" tagged-
// variant case).
func (d *Device) GetVirtualDisplay(width, height int) (Display, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("hwc: GetVirtualDisplay: invalid size %dx%d", width, height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	timeline, err := syncfence.NewTimeline()
	if err != nil {
		return nil, err
	}

	disp := &virtualDisplay{
		id:       d.nextVirtualID,
		width:    width,
		height:   height,
		pseudo:   &plane.Descriptor{Kind: plane.KindPrimary},
		mgr:      plane.NewManager(0, nil, nil, nil, d.drm, d.drm),
		comp:     compositor.New(d.renderer, d.bufs),
		timeline: timeline,
		importer: d.bufs,
		retire:   types.InvalidFence,
	}
	d.virtuals[disp.id] = disp
	d.nextVirtualID++
	return disp, nil
}

// Close tears down every display's fence timeline, stops the event loop,
// releases the dumb-buffer handler's render targets, and closes the DRM
// device, running the independent teardowns concurrently via errgroup the
// way this codebase's other multi-resource Close paths do.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.mu.Lock()
	internals := make([]*internalDisplay, 0, len(d.internal))
	for _, disp := range d.internal {
		internals = append(internals, disp)
	}
	virtuals := make([]*virtualDisplay, 0, len(d.virtuals))
	for _, v := range d.virtuals {
		virtuals = append(virtuals, v)
	}
	d.mu.Unlock()

	var eg errgroup.Group
	for _, disp := range internals {
		disp := disp
		eg.Go(disp.timeline.Close)
	}
	for _, v := range virtuals {
		v := v
		eg.Go(v.timeline.Close)
	}
	eg.Go(d.loop.Close)
	eg.Go(d.bufs.Close)
	if d.hotplugFD >= 0 {
		fd := d.hotplugFD
		eg.Go(func() error { return unix.Close(fd) })
	}

	err := eg.Wait()
	if drmErr := d.drm.Close(); drmErr != nil && err == nil {
		err = drmErr
	}
	return err
}

func crtcIndex(res drmkms.Resources, crtcID uint32) int {
	for i, id := range res.CRTCs {
		if id == crtcID {
			return i
		}
	}
	return -1
}

func containsUint32(s []uint32, v uint32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
