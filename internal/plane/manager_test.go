package plane

import (
	"errors"
	"testing"

	"github.com/gogpu/hwc/hwcerr"
	"github.com/gogpu/hwc/internal/bufferpool"
	"github.com/gogpu/hwc/types"
)

// fakeRequest records every property write for inspection in tests.
type fakeRequest struct {
	writes map[uint32]map[string]uint64
}

func newFakeRequest() *fakeRequest {
	return &fakeRequest{writes: make(map[uint32]map[string]uint64)}
}

func (r *fakeRequest) SetPlaneProperty(planeID uint32, name string, value uint64) error {
	if r.writes[planeID] == nil {
		r.writes[planeID] = make(map[string]uint64)
	}
	r.writes[planeID][name] = value
	return nil
}

// fakeCommitter simulates the kernel atomic ioctl. testOnlyAccepts controls
// whether a TEST_ONLY commit succeeds (used to drive which planes a layer
// can be scanned out on); commitErr, if set, is returned from a real
// (non-test) commit.
type fakeCommitter struct {
	testOnlyAccepts map[uint32]bool // plane id -> whether TEST_ONLY succeeds for it
	commitErr       error
	busy            bool
	lastCommit      *fakeRequest
}

type busyErr struct{ error }

func (b busyErr) Busy() bool { return true }

func (c *fakeCommitter) NewAtomicRequest() AtomicRequest { return newFakeRequest() }

func (c *fakeCommitter) Commit(req AtomicRequest, testOnly, allowModeset, pageFlipEvent bool, cookie uint64) error {
	fr := req.(*fakeRequest)
	if testOnly {
		for planeID := range fr.writes {
			if ok := c.testOnlyAccepts[planeID]; !ok {
				return errors.New("test commit rejected")
			}
		}
		return nil
	}
	c.lastCommit = fr
	if c.busy {
		return busyErr{errors.New("EBUSY")}
	}
	return c.commitErr
}

type fakeFBCreator struct {
	nextFB uint32
	fail   bool
}

func (f *fakeFBCreator) CreateFramebuffer(desc bufferpool.Descriptor) (uint32, error) {
	if f.fail {
		return 0, errors.New("no fb")
	}
	f.nextFB++
	return f.nextFB, nil
}

func testDesc(fd int) bufferpool.Descriptor {
	return bufferpool.Descriptor{
		Format: types.FormatARGB8888, Width: 1920, Height: 1080,
		Planes: []bufferpool.PlaneLayout{{FD: fd, Stride: 7680}},
	}
}

type fakeImporter struct{ fdCounter int }

func (f *fakeImporter) Import(handle types.NativeHandle) (bufferpool.Descriptor, error) {
	f.fdCounter++
	return testDesc(f.fdCounter), nil
}

func fullFrameLayer(usage types.Usage) types.Layer {
	return types.Layer{
		Handle:       "h",
		SourceCrop:   types.RectF{Left: 0, Top: 0, Right: 1920, Bottom: 1080},
		DisplayFrame: types.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080},
		Alpha:        1.0,
		Usage:        usage,
		AcquireFence: types.InvalidFence,
		ReleaseFence: types.InvalidFence,
	}
}

func newTestManager(committer *fakeCommitter, fb *fakeFBCreator) *Manager {
	primary := &Descriptor{ID: 1, Kind: KindPrimary, Caps: PlaneCaps{SupportsCrop: true, SupportsAlpha: true}}
	overlay := &Descriptor{ID: 2, Kind: KindOverlay, Caps: PlaneCaps{SupportsCrop: true, SupportsAlpha: true}}
	cursor := &Descriptor{ID: 3, Kind: KindCursor, Caps: PlaneCaps{SupportsCrop: true, SupportsAlpha: true}}
	return NewManager(100, []*Descriptor{primary}, []*Descriptor{overlay}, []*Descriptor{cursor}, committer, fb)
}

func preImportedBuffer(m *Manager, fd int) *bufferpool.Buffer {
	return m.Buffers.Import(fd, testDesc(fd))
}

// preassignFB pre-creates the framebuffer for an already-imported buffer so
// fallbackToGPU takes the TestCommit path instead of the "create fb"
// first-sight path.
func preassignFB(buf *bufferpool.Buffer, fb uint32) {
	buf.SetFramebuffer(fb)
}

func TestValidateLayersSinglePrimaryScanout(t *testing.T) {
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{1: true}}
	m := newTestManager(committer, &fakeFBCreator{})

	buf := preImportedBuffer(m, 1)
	preassignFB(buf, 10)

	layers := []*Layer{{Layer: fullFrameLayer(0), Index: 0, Buffer: buf}}

	render, composition, err := m.ValidateLayers(layers)
	if err != nil {
		t.Fatalf("ValidateLayers() error = %v", err)
	}
	if render {
		t.Errorf("render = true, want false for a directly-scannable single layer")
	}
	if len(composition) != 1 || composition[0].State != StateScanout {
		t.Fatalf("composition = %+v, want single StateScanout", composition)
	}
}

func TestValidateLayersPrimaryPlusOverlay(t *testing.T) {
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{1: true, 2: true}}
	m := newTestManager(committer, &fakeFBCreator{})

	buf1 := preImportedBuffer(m, 1)
	preassignFB(buf1, 10)
	buf2 := preImportedBuffer(m, 2)
	preassignFB(buf2, 11)

	layers := []*Layer{
		{Layer: fullFrameLayer(0), Index: 0, Buffer: buf1},
		{Layer: fullFrameLayer(0), Index: 1, Buffer: buf2},
	}

	render, composition, err := m.ValidateLayers(layers)
	if err != nil {
		t.Fatalf("ValidateLayers() error = %v", err)
	}
	if render {
		t.Errorf("render = true, want false: both layers should scan out directly")
	}
	if len(composition) != 2 {
		t.Fatalf("composition length = %d, want 2", len(composition))
	}
	if composition[0].Plane.ID != 1 || composition[1].Plane.ID != 2 {
		t.Errorf("unexpected plane assignment: %+v", composition)
	}
}

func TestValidateLayersPrimaryFallback(t *testing.T) {
	// Primary plane rejects the TEST_ONLY commit, forcing GPU composition
	// of every layer.
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{}}
	m := newTestManager(committer, &fakeFBCreator{})

	buf1 := preImportedBuffer(m, 1)
	preassignFB(buf1, 10)
	buf2 := preImportedBuffer(m, 2)
	preassignFB(buf2, 11)

	layers := []*Layer{
		{Layer: fullFrameLayer(0), Index: 0, Buffer: buf1},
		{Layer: fullFrameLayer(0), Index: 1, Buffer: buf2},
	}

	render, composition, err := m.ValidateLayers(layers)
	if err != nil {
		t.Fatalf("ValidateLayers() error = %v", err)
	}
	if !render {
		t.Errorf("render = false, want true when primary plane can't be scanned out")
	}
	if len(composition) != 1 {
		t.Fatalf("composition length = %d, want 1 (single GPU-rendered primary)", len(composition))
	}
	if composition[0].State != StateRender {
		t.Errorf("composition[0].State = %v, want StateRender", composition[0].State)
	}
	if len(composition[0].Layers) != 2 {
		t.Errorf("composition[0].Layers = %v, want both layer indices folded in", composition[0].Layers)
	}
}

func TestValidateLayersOverlayExhaustion(t *testing.T) {
	// One overlay plane, three overlay-eligible layers beyond the primary:
	// the plane takes the first, the rest render into the primary/overlay
	// tail.
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{1: true, 2: true}}
	m := newTestManager(committer, &fakeFBCreator{})

	bufs := make([]*bufferpool.Buffer, 4)
	for i := range bufs {
		bufs[i] = preImportedBuffer(m, i+1)
		preassignFB(bufs[i], uint32(10+i))
	}

	layers := make([]*Layer, 4)
	for i := range layers {
		layers[i] = &Layer{Layer: fullFrameLayer(0), Index: i, Buffer: bufs[i]}
	}

	render, composition, err := m.ValidateLayers(layers)
	if err != nil {
		t.Fatalf("ValidateLayers() error = %v", err)
	}
	if !render {
		t.Errorf("render = false, want true: more layers than overlay planes")
	}
	// primary (scanout) + one overlay (scanout) + remaining folded into
	// the overlay plane-state as a render target.
	if len(composition) != 2 {
		t.Fatalf("composition length = %d, want 2, got %+v", len(composition), composition)
	}
	if composition[1].State != StateRender {
		t.Errorf("composition[1].State = %v, want StateRender", composition[1].State)
	}
	if len(composition[1].Layers) != 3 {
		t.Errorf("composition[1].Layers = %v, want 3 (1 seed + 2 overflow)", composition[1].Layers)
	}
}

func TestValidateLayersCursorDedicatedPlane(t *testing.T) {
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{1: true, 3: true}}
	m := newTestManager(committer, &fakeFBCreator{})

	buf1 := preImportedBuffer(m, 1)
	preassignFB(buf1, 10)
	bufCursor := preImportedBuffer(m, 2)
	preassignFB(bufCursor, 11)

	layers := []*Layer{
		{Layer: fullFrameLayer(0), Index: 0, Buffer: buf1},
		{Layer: fullFrameLayer(types.UsageCursor), Index: 1, Buffer: bufCursor},
	}

	render, composition, err := m.ValidateLayers(layers)
	if err != nil {
		t.Fatalf("ValidateLayers() error = %v", err)
	}
	if render {
		t.Errorf("render = true, want false: primary and cursor both scan out directly")
	}
	if len(composition) != 2 {
		t.Fatalf("composition length = %d, want 2", len(composition))
	}
	if composition[1].Plane.Kind != KindCursor {
		t.Errorf("composition[1].Plane.Kind = %v, want KindCursor", composition[1].Plane.Kind)
	}
}

func TestManagerCommitEBUSYReturnsCommitBusy(t *testing.T) {
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{1: true}, busy: true}
	m := newTestManager(committer, &fakeFBCreator{})

	buf := preImportedBuffer(m, 1)
	preassignFB(buf, 10)
	layers := []*Layer{{Layer: fullFrameLayer(0), Index: 0, Buffer: buf}}

	_, composition, err := m.ValidateLayers(layers)
	if err != nil {
		t.Fatalf("ValidateLayers() error = %v", err)
	}

	err = m.Commit(composition, false, 42)
	kind, ok := hwcerr.KindOf(err)
	if !ok || kind != hwcerr.KindCommitBusy {
		t.Fatalf("Commit() error kind = %v, %v, want KindCommitBusy", kind, ok)
	}
}

func TestManagerCommitFailureIsCommitFailed(t *testing.T) {
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{1: true}, commitErr: errors.New("EINVAL")}
	m := newTestManager(committer, &fakeFBCreator{})

	buf := preImportedBuffer(m, 1)
	preassignFB(buf, 10)
	layers := []*Layer{{Layer: fullFrameLayer(0), Index: 0, Buffer: buf}}

	_, composition, err := m.ValidateLayers(layers)
	if err != nil {
		t.Fatalf("ValidateLayers() error = %v", err)
	}

	err = m.Commit(composition, false, 42)
	kind, ok := hwcerr.KindOf(err)
	if !ok || kind != hwcerr.KindCommitFailed {
		t.Fatalf("Commit() error kind = %v, %v, want KindCommitFailed", kind, ok)
	}
}

func TestNoPlaneErrorWhenManagerHasNoPrimary(t *testing.T) {
	committer := &fakeCommitter{testOnlyAccepts: map[uint32]bool{}}
	m := NewManager(1, nil, nil, nil, committer, &fakeFBCreator{})

	_, _, err := m.ValidateLayers([]*Layer{{Layer: fullFrameLayer(0), Index: 0}})
	kind, ok := hwcerr.KindOf(err)
	if !ok || kind != hwcerr.KindNoPlane {
		t.Fatalf("ValidateLayers() error kind = %v, %v, want KindNoPlane", kind, ok)
	}
}
