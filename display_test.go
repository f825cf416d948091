package hwc

import (
	"testing"

	"github.com/gogpu/hwc/internal/bufferpool"
	"github.com/gogpu/hwc/internal/compositor"
	"github.com/gogpu/hwc/internal/pageflip"
	"github.com/gogpu/hwc/internal/plane"
	"github.com/gogpu/hwc/internal/syncfence"
	"github.com/gogpu/hwc/types"
)

// fakeHandle is a native buffer handle for tests: an int alone is enough
// identity for fakeImporter to produce a stable, distinguishable
// descriptor per handle.
type fakeHandle int

type fakeImporter struct{}

func (fakeImporter) Import(handle types.NativeHandle) (bufferpool.Descriptor, error) {
	h := handle.(fakeHandle)
	return bufferpool.Descriptor{
		Format: types.FormatARGB8888,
		Width:  64,
		Height: 64,
		Planes: []bufferpool.PlaneLayout{{FD: int(h), Stride: 256}},
	}, nil
}

func (fakeImporter) Release(types.NativeHandle) error { return nil }

type fakeAtomicRequest struct{}

func (fakeAtomicRequest) SetPlaneProperty(uint32, string, uint64) error { return nil }

// fakeCommitter implements internal/plane.Committer. TEST_ONLY commits
// always succeed (the layer-assignment walk relies on this to decide a
// plane can scan out a layer); real commits return commitErr.
type fakeCommitter struct {
	commitErr error
}

func (c *fakeCommitter) NewAtomicRequest() plane.AtomicRequest { return fakeAtomicRequest{} }

func (c *fakeCommitter) Commit(_ plane.AtomicRequest, testOnly, _ bool, _ bool, _ uint64) error {
	if testOnly {
		return nil
	}
	return c.commitErr
}

type fakeFBCreator struct{ next uint32 }

func (f *fakeFBCreator) CreateFramebuffer(bufferpool.Descriptor) (uint32, error) {
	f.next++
	return f.next, nil
}

// busyErr mimics drmkms's EBUSY wrapping: it satisfies the unexported
// `Busy() bool` interface internal/plane.asBusy checks for.
type busyErr struct{}

func (busyErr) Error() string { return "commit busy" }
func (busyErr) Busy() bool    { return true }

func newTestDisplay(t *testing.T, committer *fakeCommitter) *internalDisplay {
	t.Helper()

	primary := &plane.Descriptor{
		ID:   10,
		Kind: plane.KindPrimary,
		Caps: plane.PlaneCaps{SupportsCrop: true, SupportsAlpha: true},
	}
	mgr := plane.NewManager(1, []*plane.Descriptor{primary}, nil, nil, committer, &fakeFBCreator{})

	timeline, err := syncfence.NewTimeline()
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}
	t.Cleanup(func() { timeline.Close() })

	return &internalDisplay{
		id:            1,
		connectorID:   1,
		crtcID:        1,
		mgr:           mgr,
		comp:          compositor.New(nil, nil), // never exercised: every test layer scans out directly
		timeline:      timeline,
		pageflips:     pageflip.NewRegistry(),
		importer:      fakeImporter{},
		activeModeIdx: -1,
		retire:        types.InvalidFence,
	}
}

// warmBuffer pre-imports handle and gives it a framebuffer, so
// Manager.ValidateLayers' fallbackToGPU takes the "already has a
// framebuffer, try a TEST_ONLY commit" branch instead of "just created
// one, fall back to GPU this frame" on its very first appearance.
func warmBuffer(d *internalDisplay, handle fakeHandle) {
	desc, _ := fakeImporter{}.Import(handle)
	buf := d.mgr.Buffers.Import(handle, desc)
	if _, ok := buf.Framebuffer(); !ok {
		fb, _ := d.mgr.FBCreator.CreateFramebuffer(desc)
		buf.SetFramebuffer(fb)
	}
}

func oneLayer(handle fakeHandle) []types.Layer {
	return []types.Layer{{
		Handle:       handle,
		SourceCrop:   types.RectF{Left: 0, Top: 0, Right: 64, Bottom: 64},
		DisplayFrame: types.Rect{Left: 0, Top: 0, Right: 64, Bottom: 64},
		Alpha:        1,
	}}
}

func TestPresentFenceHandoffAndRetirePairing(t *testing.T) {
	committer := &fakeCommitter{}
	d := newTestDisplay(t, committer)

	warmBuffer(d, 1)
	layers1 := oneLayer(1)
	fence1, err := d.Present(layers1)
	if err != nil {
		t.Fatalf("first Present: %v", err)
	}
	if fence1 != types.InvalidFence {
		t.Fatalf("first Present retire = %v, want InvalidFence", fence1)
	}
	if !layers1[0].ReleaseFence.Valid() {
		t.Fatalf("first Present left ReleaseFence invalid")
	}
	firstPoint := layers1[0].ReleaseFence

	// Simulate the DRM event thread observing this commit's page-flip
	// completion, which the retire-delivery goroutine spawned inside
	// Present is waiting to forward into the timeline.
	d.pageflips.Complete(1, 1000)
	d.timeline.Wait(firstPoint)

	warmBuffer(d, 2)
	layers2 := oneLayer(2)
	fence2, err := d.Present(layers2)
	if err != nil {
		t.Fatalf("second Present: %v", err)
	}
	if fence2 != firstPoint {
		t.Fatalf("second Present retire = %v, want %v (the first commit's point)", fence2, firstPoint)
	}

	d.pageflips.Complete(2, 2000)
	d.timeline.Wait(layers2[0].ReleaseFence)
}

func TestPresentCommitBusyDropsFrameWithoutError(t *testing.T) {
	committer := &fakeCommitter{}
	d := newTestDisplay(t, committer)

	warmBuffer(d, 1)
	layers1 := oneLayer(1)
	if _, err := d.Present(layers1); err != nil {
		t.Fatalf("warmup Present: %v", err)
	}
	d.pageflips.Complete(1, 1000)
	d.timeline.Wait(layers1[0].ReleaseFence)
	retireBeforeBusy := d.retire

	committer.commitErr = busyErr{}
	warmBuffer(d, 2)
	layers2 := oneLayer(2)
	fence, err := d.Present(layers2)
	if err != nil {
		t.Fatalf("busy Present returned an error, want success-as-drop: %v", err)
	}
	if fence != retireBeforeBusy {
		t.Fatalf("busy Present retire = %v, want unchanged %v", fence, retireBeforeBusy)
	}
	if layers2[0].ReleaseFence != types.InvalidFence {
		t.Fatalf("busy Present left ReleaseFence = %v, want InvalidFence", layers2[0].ReleaseFence)
	}
	if d.pageflips.Pending() != 0 {
		t.Fatalf("busy Present left %d cookies pending, want 0", d.pageflips.Pending())
	}
}

func TestPresentPoweredOffIsNoOp(t *testing.T) {
	committer := &fakeCommitter{}
	d := newTestDisplay(t, committer)
	d.poweredOff = true

	layers := oneLayer(1)
	fence, err := d.Present(layers)
	if err != nil {
		t.Fatalf("powered-off Present: %v", err)
	}
	if fence != types.InvalidFence {
		t.Fatalf("powered-off Present retire = %v, want InvalidFence", fence)
	}
	if layers[0].ReleaseFence != types.InvalidFence {
		t.Fatalf("powered-off Present left ReleaseFence = %v, want InvalidFence", layers[0].ReleaseFence)
	}
	if d.mgr.Buffers.Len() != 0 {
		t.Fatalf("powered-off Present touched the buffer registry")
	}
}
