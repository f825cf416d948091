package drmkms

import (
	"fmt"
	"unsafe"
)

// ModeInfo is one display mode a connector advertises, the fields
// hwc.Display needs to pick a preferred mode and compute refresh/DPI
// (spec.md §6).
type ModeInfo struct {
	Clock    uint32
	Width    uint16
	Height   uint16
	Htotal   uint16
	Vtotal   uint16
	Vrefresh uint32
	Flags    uint32
	raw      modeModeInfo
}

// Refresh reports the mode's refresh rate in milli-Hz. When Vrefresh isn't
// already populated it is derived the same way as the kernel derives Hz,
// (clock * 1000) / (htotal * vtotal) with clock in kHz, scaled by a
// further 1000.
func (m ModeInfo) Refresh() uint32 {
	if m.Vrefresh != 0 {
		return m.Vrefresh * 1000
	}
	if m.Htotal == 0 || m.Vtotal == 0 {
		return 0
	}
	return uint32(uint64(m.Clock) * 1000000 / (uint64(m.Htotal) * uint64(m.Vtotal)))
}

// GetConnectorModes enumerates every mode a connector advertises, plus
// its physical size in millimeters for DPI computation.
func (d *Device) GetConnectorModes(connectorID uint32) ([]ModeInfo, uint32, uint32, error) {
	req := modeGetConnector{ConnectorID: connectorID}
	if err := d.ioctl(ioctlModeGetConnector(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return nil, 0, 0, fmt.Errorf("drmkms: GETCONNECTOR(%d) (sizing): %w", connectorID, err)
	}

	raw := make([]modeModeInfo, req.CountModes)
	if len(raw) > 0 {
		req.ModesPtr = uint64(uintptr(unsafe.Pointer(&raw[0])))
	}
	if err := d.ioctl(ioctlModeGetConnector(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return nil, 0, 0, fmt.Errorf("drmkms: GETCONNECTOR(%d): %w", connectorID, err)
	}

	modes := make([]ModeInfo, len(raw))
	for i, m := range raw {
		modes[i] = ModeInfo{
			Clock: m.Clock, Width: m.Hdisplay, Height: m.Vdisplay,
			Htotal: m.Htotal, Vtotal: m.Vtotal, Vrefresh: m.Vrefresh,
			Flags: m.Flags, raw: m,
		}
	}
	return modes, req.MmWidth, req.MmHeight, nil
}

// EncoderInfo is the subset of GETENCODER's result the connector/CRTC
// rebinding loop needs.
type EncoderInfo struct {
	ID            uint32
	CrtcID        uint32
	PossibleCrtcs uint32
}

// GetEncoder fetches one encoder's currently-bound CRTC and possible-CRTC
// mask.
func (d *Device) GetEncoder(encoderID uint32) (EncoderInfo, error) {
	req := modeGetEncoder{EncoderID: encoderID}
	if err := d.ioctl(ioctlModeGetEncoder(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return EncoderInfo{}, fmt.Errorf("drmkms: GETENCODER(%d): %w", encoderID, err)
	}
	return EncoderInfo{ID: encoderID, CrtcID: req.CrtcID, PossibleCrtcs: req.PossibleCrtcs}, nil
}

// CreateModeBlob uploads mode as a MODE_ID property blob, returning the
// blob id to set on the CRTC's "MODE_ID" property during a modeset.
func (d *Device) CreateModeBlob(mode ModeInfo) (uint32, error) {
	req := modeCreatePropBlob{
		Data:   uint64(uintptr(unsafe.Pointer(&mode.raw))),
		Length: uint32(unsafe.Sizeof(mode.raw)),
	}
	if err := d.ioctl(ioctlModeCreatePropBlob(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("drmkms: CREATEPROPBLOB: %w", err)
	}
	return req.BlobID, nil
}

// DestroyModeBlob releases a blob created by CreateModeBlob.
func (d *Device) DestroyModeBlob(blobID uint32) error {
	req := modeDestroyPropBlob{BlobID: blobID}
	if err := d.ioctl(ioctlModeDestroyPropBlob(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("drmkms: DESTROYPROPBLOB(%d): %w", blobID, err)
	}
	return nil
}
