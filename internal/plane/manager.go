package plane

import (
	"github.com/gogpu/hwc/hwclog"
	"github.com/gogpu/hwc/internal/bufferpool"
	"github.com/gogpu/hwc/types"
)

// Importer resolves a caller-supplied native buffer handle to its
// structural descriptor, implemented by nativebuffer.Handler.
type Importer interface {
	Import(handle types.NativeHandle) (bufferpool.Descriptor, error)
}

// FramebufferCreator creates a kernel scanout framebuffer id for a buffer
// descriptor, implemented by drmkms.Device.
type FramebufferCreator interface {
	CreateFramebuffer(desc bufferpool.Descriptor) (uint32, error)
}

// Manager owns one display's hardware planes and overlay buffer registry,
// and runs the layer-to-plane assignment algorithm every frame. It is a
// direct port of DisplayPlaneManager from the reference compositor.
type Manager struct {
	CrtcID uint32

	Primary []*Descriptor
	Overlay []*Descriptor
	Cursor  []*Descriptor

	Buffers   *bufferpool.Registry
	Committer Committer
	FBCreator FramebufferCreator
}

// NewManager creates a plane manager for one CRTC.
func NewManager(crtcID uint32, primary, overlay, cursor []*Descriptor, committer Committer, fbCreator FramebufferCreator) *Manager {
	return &Manager{
		CrtcID:    crtcID,
		Primary:   primary,
		Overlay:   overlay,
		Cursor:    cursor,
		Buffers:   bufferpool.NewRegistry(),
		Committer: committer,
		FBCreator: fbCreator,
	}
}

type planeLayerPair struct {
	plane *Descriptor
	layer *Layer
}

// BeginFrameUpdate disables every overlay/cursor plane's enabled flag,
// marks every registry buffer not-in-use, imports each input layer's
// native handle through importer, and resolves it to an overlay buffer.
func (m *Manager) BeginFrameUpdate(layers []types.Layer, importer Importer) ([]*Layer, error) {
	for _, p := range m.Cursor {
		p.SetEnabled(false)
	}
	for _, p := range m.Overlay {
		p.SetEnabled(false)
	}
	m.Buffers.BeginFrame()

	out := make([]*Layer, len(layers))
	for i, l := range layers {
		desc, err := importer.Import(l.Handle)
		if err != nil {
			return nil, errBadHandle("Manager.BeginFrameUpdate")
		}
		buf := m.Buffers.Import(l.Handle, desc)
		out[i] = &Layer{Layer: l, Index: i, Buffer: buf}
	}
	return out, nil
}

// ValidateLayers assigns hardware planes to layers: seed the primary
// plane with the first layer, fall back to GPU composition if it can't be
// scanned out directly, then walk overlay planes front-to-back assigning
// one layer per plane until either layers or planes run out (remaining
// layers are folded into the last plane-state for GPU composition), and
// finally handle a dedicated cursor plane for the topmost cursor-usage
// layer if one exists. Returns whether any plane-state needs GPU
// rendering and the ordered list of plane assignments.
func (m *Manager) ValidateLayers(layers []*Layer) (bool, []*State, error) {
	if len(m.Primary) == 0 {
		return false, nil, errNoPlane("Manager.ValidateLayers")
	}
	if len(layers) == 0 {
		return false, nil, nil
	}

	var composition []*State
	var commitPlanes []planeLayerPair
	renderLayers := false

	currentPlane := m.Primary[0]
	primaryLayer := layers[0]
	commitPlanes = append(commitPlanes, planeLayerPair{currentPlane, primaryLayer})
	primaryState := newScanoutState(currentPlane, primaryLayer)
	composition = append(composition, primaryState)

	layerBegin := 1
	layerEnd := len(layers)

	fellBack, err := m.fallbackToGPU(currentPlane, primaryLayer, commitPlanes)
	if err != nil {
		return false, nil, err
	}
	if fellBack {
		renderLayers = true
		primaryState.ForceGPURendering()
		for i := layerBegin; i < layerEnd; i++ {
			primaryState.AddLayer(layers[i].Index)
		}
		hwclog.Logger().Debug("all layers composited with primary", "crtc", m.CrtcID)
		return renderLayers, composition, nil
	}

	if len(layers) == 1 {
		return renderLayers, composition, nil
	}

	// Find the topmost cursor-usage layer and exclude it (and anything
	// after it) from the overlay-plane walk below.
	var cursorLayer *Layer
	for j := len(layers) - 1; j >= layerBegin; j-- {
		if layers[j].Usage.Has(types.UsageCursor) {
			cursorLayer = layers[j]
			layerEnd = j
			break
		}
	}

	if layerBegin < layerEnd {
		for _, ovPlane := range m.Overlay {
			commitPlanes = append(commitPlanes, planeLayerPair{ovPlane, nil})
			lastState := composition[len(composition)-1]
			assignedAt := -1

			for i := layerBegin; i < layerEnd; i++ {
				layer := layers[i]
				commitPlanes[len(commitPlanes)-1].layer = layer

				fellBack, err := m.fallbackToGPU(ovPlane, layer, commitPlanes)
				if err != nil {
					return false, nil, err
				}
				if !fellBack {
					composition = append(composition, newScanoutState(ovPlane, layer))
					assignedAt = i
					break
				}
				lastState.AddLayer(layer.Index)
			}

			if assignedAt >= 0 {
				layerBegin = assignedAt + 1
			} else {
				layerBegin = layerEnd
			}
			if lastState.State == StateRender {
				renderLayers = true
			}
		}

		lastState := composition[len(composition)-1]
		for i := layerBegin; i < layerEnd; i++ {
			lastState.AddLayer(layers[i].Index)
		}
		if lastState.State == StateRender {
			renderLayers = true
		}
	}

	if cursorLayer != nil {
		var cursorPlane *Descriptor
		if len(m.Cursor) > 0 {
			cursorPlane = m.Cursor[0]
			commitPlanes = append(commitPlanes, planeLayerPair{cursorPlane, cursorLayer})
			fellBack, err := m.fallbackToGPU(cursorPlane, cursorLayer, commitPlanes)
			if err != nil {
				return false, nil, err
			}
			if fellBack {
				cursorPlane = nil
			}
		}

		if cursorPlane != nil {
			composition = append(composition, newScanoutState(cursorPlane, cursorLayer))
		} else {
			renderLayers = true
			composition[len(composition)-1].AddLayer(cursorLayer.Index)
		}
	}

	return renderLayers, composition, nil
}

// fallbackToGPU reports whether layer cannot be scanned out on plane and
// must instead be folded into GPU composition. It mirrors
// DisplayPlaneManager::FallbacktoGPU: a plane that can't validate the
// layer at all falls back immediately; a plane that can but whose buffer
// has no scanout framebuffer yet gets one created (best-effort) and also
// falls back for this frame; otherwise a TEST_ONLY atomic commit decides.
func (m *Manager) fallbackToGPU(p *Descriptor, l *Layer, commitPlanes []planeLayerPair) (bool, error) {
	if !p.ValidateLayer(l) {
		return true, nil
	}

	if _, ok := l.Buffer.Framebuffer(); !ok {
		fb, err := m.FBCreator.CreateFramebuffer(l.Buffer.Descriptor)
		if err != nil {
			hwclog.Logger().Warn("failed to create scanout framebuffer", "error", err)
			return true, nil
		}
		l.Buffer.SetFramebuffer(fb)
		return true, nil
	}

	ok, err := m.testCommit(commitPlanes)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// testCommit issues a TEST_ONLY atomic commit for the given plane/layer
// pairs to check whether the kernel accepts this plane configuration
// without actually applying it.
func (m *Manager) testCommit(commitPlanes []planeLayerPair) (bool, error) {
	req := m.Committer.NewAtomicRequest()
	for _, pair := range commitPlanes {
		if pair.layer == nil {
			continue
		}
		if err := pair.plane.UpdateProperties(req, m.CrtcID, pair.layer); err != nil {
			return false, nil
		}
	}
	if err := m.Committer.Commit(req, true, false, false, 0); err != nil {
		return false, nil
	}
	return true, nil
}

// Commit queues every plane-state's properties, disables unused
// overlay/cursor planes, and issues the atomic commit with the page-flip
// event and (if needsModeset) ALLOW_MODESET flags. A non-EBUSY failure is
// returned as CommitFailed; EBUSY is returned as CommitBusy so the caller
// can drop the frame without treating it as an error.
func (m *Manager) Commit(composition []*State, needsModeset bool, cookie uint64) error {
	req := m.Committer.NewAtomicRequest()

	for _, state := range composition {
		layer := state.RepresentativeLayer()
		if layer == nil {
			continue
		}
		if err := state.Plane.UpdateProperties(req, m.CrtcID, layer); err != nil {
			return errCommitFailed("Manager.Commit", err)
		}
		state.Plane.SetEnabled(true)
		m.Buffers.MarkInUse(layer.Buffer)
	}

	for _, p := range m.Cursor {
		if p.IsEnabled() {
			continue
		}
		if err := p.Disable(req); err != nil {
			return errCommitFailed("Manager.Commit", err)
		}
	}
	for _, p := range m.Overlay {
		if p.IsEnabled() {
			continue
		}
		if err := p.Disable(req); err != nil {
			return errCommitFailed("Manager.Commit", err)
		}
	}

	err := m.Committer.Commit(req, false, needsModeset, true, cookie)
	if err == nil {
		return nil
	}
	if kind, ok := asBusy(err); ok && kind {
		return errCommitBusy("Manager.Commit", err)
	}
	return errCommitFailed("Manager.Commit", err)
}

// asBusy reports whether err represents an EBUSY commit failure. The
// concrete Committer implementation is expected to wrap unix.EBUSY so
// this can be detected without a direct syscall import here.
func asBusy(err error) (bool, bool) {
	type busy interface{ Busy() bool }
	if b, ok := err.(busy); ok {
		return b.Busy(), true
	}
	return false, false
}
