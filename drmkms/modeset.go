package drmkms

import "fmt"

// ModesetRequest accumulates the CRTC/connector property writes a mode
// change or DPMS transition needs, kept separate from plane.AtomicRequest
// since it touches the CRTC and connector object types rather than
// planes. It shares the same underlying atomicRequest bookkeeping and
// ioctl path as a plane-assignment commit.
type ModesetRequest struct {
	ar *atomicRequest
}

// NewModesetRequest creates an empty modeset request.
func (d *Device) NewModesetRequest() *ModesetRequest {
	return &ModesetRequest{ar: newAtomicRequest(d)}
}

// SetCrtcProperty queues a property write against crtcID.
func (r *ModesetRequest) SetCrtcProperty(crtcID uint32, name string, value uint64) error {
	return r.ar.setProperty(objCrtc, crtcID, name, value)
}

// SetConnectorProperty queues a property write against connectorID.
func (r *ModesetRequest) SetConnectorProperty(connectorID uint32, name string, value uint64) error {
	return r.ar.setProperty(objConnector, connectorID, name, value)
}

// CommitModeset issues req as an atomic commit with ALLOW_MODESET set, no
// page-flip event (modesets don't produce one) and no cookie.
func (d *Device) CommitModeset(req *ModesetRequest) error {
	if req == nil || req.ar == nil {
		return fmt.Errorf("drmkms: CommitModeset: nil request")
	}
	return d.commitRequest(req.ar, false, true, false, 0)
}
