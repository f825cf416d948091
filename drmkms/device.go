package drmkms

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gogpu/hwc/hwcerr"
)

// Device is one open DRM device file descriptor plus the property-name
// to property-ID caches atomic commits need.
type Device struct {
	fd   int
	file *os.File

	mu       sync.Mutex
	propIDs  map[uint32]map[string]uint32 // object ID -> name -> property ID
}

// Open opens a DRM device node (e.g. "/dev/dri/card0").
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("drmkms: open %s: %w", path, err)
	}
	return &Device{
		fd:      int(f.Fd()),
		file:    f,
		propIDs: make(map[uint32]map[string]uint32),
	}, nil
}

// Close releases the underlying device file.
func (d *Device) Close() error { return d.file.Close() }

// FD returns the raw device file descriptor, for internal/eventloop to
// epoll-wait on and for nativebuffer/dumb to ioctl against.
func (d *Device) FD() uintptr { return uintptr(d.fd) }

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Resources is the summary returned by GETRESOURCES: every CRTC,
// connector, and encoder ID the device exposes.
type Resources struct {
	CRTCs      []uint32
	Connectors []uint32
	Encoders   []uint32
}

// GetResources enumerates the device's CRTCs, connectors, and encoders.
func (d *Device) GetResources() (Resources, error) {
	var req modeResources
	if err := d.ioctl(ioctlModeGetResources(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return Resources{}, fmt.Errorf("drmkms: GETRESOURCES (sizing): %w", err)
	}

	crtcs := make([]uint32, req.CountCrtcs)
	connectors := make([]uint32, req.CountConnectors)
	encoders := make([]uint32, req.CountEncoders)
	if len(crtcs) > 0 {
		req.CrtcIDPtr = uint64(uintptr(unsafe.Pointer(&crtcs[0])))
	}
	if len(connectors) > 0 {
		req.ConnectorIDPtr = uint64(uintptr(unsafe.Pointer(&connectors[0])))
	}
	if len(encoders) > 0 {
		req.EncoderIDPtr = uint64(uintptr(unsafe.Pointer(&encoders[0])))
	}
	if err := d.ioctl(ioctlModeGetResources(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return Resources{}, fmt.Errorf("drmkms: GETRESOURCES: %w", err)
	}
	return Resources{CRTCs: crtcs, Connectors: connectors, Encoders: encoders}, nil
}

// PlaneResources enumerates every plane ID the device exposes, across
// every CRTC.
func (d *Device) PlaneResources() ([]uint32, error) {
	var req modeGetPlaneResources
	if err := d.ioctl(ioctlModeGetPlaneResources(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("drmkms: GETPLANERESOURCES (sizing): %w", err)
	}
	ids := make([]uint32, req.CountPlanes)
	if len(ids) > 0 {
		req.PlaneIDPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
	}
	if err := d.ioctl(ioctlModeGetPlaneResources(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("drmkms: GETPLANERESOURCES: %w", err)
	}
	return ids, nil
}

// PlaneInfo is the subset of GETPLANE's result the plane-assignment
// algorithm needs to build internal/plane.Descriptor.
type PlaneInfo struct {
	ID            uint32
	PossibleCRTCs uint32
}

// GetPlane fetches one plane's CRTC affinity mask.
func (d *Device) GetPlane(planeID uint32) (PlaneInfo, error) {
	req := modeGetPlane{PlaneID: planeID}
	if err := d.ioctl(ioctlModeGetPlane(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return PlaneInfo{}, fmt.Errorf("drmkms: GETPLANE(%d): %w", planeID, err)
	}
	return PlaneInfo{ID: planeID, PossibleCRTCs: req.PossibleCrtcs}, nil
}

// ConnectorInfo is the subset of GETCONNECTOR's result hwc needs to
// decide whether a display is attached and which encoder/CRTC it binds.
type ConnectorInfo struct {
	ID         uint32
	Connected  bool
	EncoderID  uint32
}

const connectionStatusConnected = 1

// GetConnector fetches one connector's connection status and bound
// encoder.
func (d *Device) GetConnector(connectorID uint32) (ConnectorInfo, error) {
	req := modeGetConnector{ConnectorID: connectorID}
	if err := d.ioctl(ioctlModeGetConnector(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return ConnectorInfo{}, fmt.Errorf("drmkms: GETCONNECTOR(%d): %w", connectorID, err)
	}
	return ConnectorInfo{
		ID:        connectorID,
		Connected: req.Connection == connectionStatusConnected,
		EncoderID: req.EncoderID,
	}, nil
}

// propertyID resolves name to its numeric property ID for objID/objType,
// caching the result after the first OBJ_GETPROPERTIES + per-property
// GETPROPERTY walk.
func (d *Device) propertyID(objType, objID uint32, name string) (uint32, error) {
	d.mu.Lock()
	if byName, ok := d.propIDs[objID]; ok {
		if id, ok := byName[name]; ok {
			d.mu.Unlock()
			return id, nil
		}
	}
	d.mu.Unlock()

	byName, err := d.loadProperties(objType, objID)
	if err != nil {
		return 0, err
	}
	id, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("drmkms: object %d has no property %q", objID, name)
	}
	return id, nil
}

func (d *Device) loadProperties(objType, objID uint32) (map[string]uint32, error) {
	var req modeObjGetProperties
	req.ObjID = objID
	req.ObjType = objType
	if err := d.ioctl(ioctlModeObjGetProperties(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("drmkms: OBJ_GETPROPERTIES(%d) (sizing): %w", objID, err)
	}

	ids := make([]uint32, req.CountProps)
	values := make([]uint64, req.CountProps)
	if len(ids) > 0 {
		req.PropsPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
		req.PropValuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
	}
	if err := d.ioctl(ioctlModeObjGetProperties(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("drmkms: OBJ_GETPROPERTIES(%d): %w", objID, err)
	}

	byName := make(map[string]uint32, len(ids))
	for _, id := range ids {
		name, err := d.propertyName(id)
		if err != nil {
			return nil, err
		}
		byName[name] = id
	}

	d.mu.Lock()
	d.propIDs[objID] = byName
	d.mu.Unlock()
	return byName, nil
}

func (d *Device) propertyName(propID uint32) (string, error) {
	req := modeGetProperty{PropID: propID}
	if err := d.ioctl(ioctlModeGetProperty(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return "", fmt.Errorf("drmkms: GETPROPERTY(%d): %w", propID, err)
	}
	n := 0
	for n < len(req.Name) && req.Name[n] != 0 {
		n++
	}
	return string(req.Name[:n]), nil
}

// busyError wraps an ioctl failure that the kernel reported as EBUSY, so
// internal/plane.asBusy can tell a transient commit rejection apart from
// a hard failure.
type busyError struct{ err error }

func (e busyError) Error() string { return e.err.Error() }
func (e busyError) Unwrap() error { return e.err }
func (e busyError) Busy() bool    { return true }

func wrapCommitError(op string, err error) error {
	if err == unix.EBUSY {
		return busyError{hwcerr.Wrap(op, hwcerr.KindCommitBusy, err)}
	}
	return hwcerr.Wrap(op, hwcerr.KindCommitFailed, err)
}
