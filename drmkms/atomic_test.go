package drmkms

import "testing"

func TestAtomicRequestAccumulatesPerPlaneWrites(t *testing.T) {
	ar := newAtomicRequest(nil)

	if err := ar.SetPlaneProperty(1, "FB_ID", 7); err != nil {
		t.Fatalf("SetPlaneProperty: %v", err)
	}
	if err := ar.SetPlaneProperty(1, "CRTC_ID", 10); err != nil {
		t.Fatalf("SetPlaneProperty: %v", err)
	}
	if err := ar.SetPlaneProperty(2, "FB_ID", 8); err != nil {
		t.Fatalf("SetPlaneProperty: %v", err)
	}

	if len(ar.objIDs) != 2 {
		t.Fatalf("objIDs = %v, want 2 distinct plane IDs", ar.objIDs)
	}
	if ar.objIDs[0] != 1 || ar.objIDs[1] != 2 {
		t.Fatalf("objIDs = %v, want [1 2] in first-seen order", ar.objIDs)
	}
	if len(ar.names[1]) != 2 || len(ar.values[1]) != 2 {
		t.Fatalf("plane 1 has %d names / %d values, want 2/2", len(ar.names[1]), len(ar.values[1]))
	}
	if ar.values[1][0] != 7 || ar.values[1][1] != 10 {
		t.Fatalf("plane 1 values = %v, want [7 10]", ar.values[1])
	}
}

func TestAtomicRequestRejectsNonDrmkmsRequest(t *testing.T) {
	d := &Device{propIDs: make(map[uint32]map[string]uint32)}
	if err := d.Commit(fakeRequest{}, true, false, false, 0); err == nil {
		t.Fatal("Commit: want error for a plane.AtomicRequest not created by this package, got nil")
	}
}

type fakeRequest struct{}

func (fakeRequest) SetPlaneProperty(uint32, string, uint64) error { return nil }
