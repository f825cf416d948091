package drmkms

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/hwc/internal/plane"
)

// atomicRequest accumulates per-plane property writes keyed by name,
// resolving each name to a numeric property ID only when the request is
// actually submitted, so building a request never itself touches the
// kernel.
type atomicRequest struct {
	dev *Device

	objIDs   []uint32
	objTypes map[uint32]uint32
	names    map[uint32][]string
	values   map[uint32][]uint64
}

var _ plane.AtomicRequest = (*atomicRequest)(nil)

func newAtomicRequest(dev *Device) *atomicRequest {
	return &atomicRequest{
		dev:      dev,
		objTypes: make(map[uint32]uint32),
		names:    make(map[uint32][]string),
		values:   make(map[uint32][]uint64),
	}
}

// SetPlaneProperty queues a property write for planeID, resolved against
// the DRM_MODE_OBJECT_PLANE object type. It implements plane.AtomicRequest.
func (r *atomicRequest) SetPlaneProperty(planeID uint32, name string, value uint64) error {
	return r.setProperty(objPlane, planeID, name, value)
}

// setProperty queues a property write for objID, resolved against
// objType at Commit time. Used directly (bypassing the
// plane.AtomicRequest interface) by the CRTC/connector modeset path,
// since a plane-assignment commit and a modeset commit touch different
// object types within the same atomic request.
func (r *atomicRequest) setProperty(objType, objID uint32, name string, value uint64) error {
	if _, ok := r.names[objID]; !ok {
		r.objIDs = append(r.objIDs, objID)
		r.objTypes[objID] = objType
	}
	r.names[objID] = append(r.names[objID], name)
	r.values[objID] = append(r.values[objID], value)
	return nil
}

// NewAtomicRequest implements internal/plane.Committer.
func (d *Device) NewAtomicRequest() plane.AtomicRequest {
	return newAtomicRequest(d)
}

// Commit implements internal/plane.Committer: it resolves every queued
// property name to its numeric ID, flattens the per-object arrays the
// ATOMIC ioctl expects, and issues it with the requested flags.
func (d *Device) Commit(req plane.AtomicRequest, testOnly, allowModeset, pageFlipEvent bool, cookie uint64) error {
	ar, ok := req.(*atomicRequest)
	if !ok {
		return fmt.Errorf("drmkms: Commit: req is not a drmkms atomic request")
	}
	return d.commitRequest(ar, testOnly, allowModeset, pageFlipEvent, cookie)
}

// commitRequest is the shared ioctl path for both plane-assignment
// commits (via Commit) and CRTC/connector modeset commits (via
// CommitModeset), resolving every queued property name against the
// object type it was queued with.
func (d *Device) commitRequest(ar *atomicRequest, testOnly, allowModeset, pageFlipEvent bool, cookie uint64) error {
	var propIDs []uint32
	var propValues []uint64
	countPerObj := make([]uint32, len(ar.objIDs))

	for i, objID := range ar.objIDs {
		names := ar.names[objID]
		values := ar.values[objID]
		objType := ar.objTypes[objID]
		countPerObj[i] = uint32(len(names))
		for j, name := range names {
			id, err := d.propertyID(objType, objID, name)
			if err != nil {
				return fmt.Errorf("drmkms: Commit: %w", err)
			}
			propIDs = append(propIDs, id)
			propValues = append(propValues, values[j])
		}
	}

	var flags uint32
	if testOnly {
		flags |= modeAtomicFlagsTestOnly
	}
	if allowModeset {
		flags |= modeAtomicFlagsAllowModeset
	} else {
		flags |= modeAtomicFlagsNonblock
	}
	if pageFlipEvent {
		flags |= modePageFlipEventFlag
	}

	atomicReq := modeAtomic{
		Flags:     flags,
		CountObjs: uint32(len(ar.objIDs)),
		UserData:  cookie,
	}
	if len(ar.objIDs) > 0 {
		atomicReq.ObjsPtr = uint64(uintptr(unsafe.Pointer(&ar.objIDs[0])))
		atomicReq.CountPropsPtr = uint64(uintptr(unsafe.Pointer(&countPerObj[0])))
	}
	if len(propIDs) > 0 {
		atomicReq.PropsPtr = uint64(uintptr(unsafe.Pointer(&propIDs[0])))
		atomicReq.PropValuesPtr = uint64(uintptr(unsafe.Pointer(&propValues[0])))
	}

	if err := d.ioctl(ioctlModeAtomic(unsafe.Sizeof(atomicReq)), unsafe.Pointer(&atomicReq)); err != nil {
		return wrapCommitError("drmkms.Device.Commit", err)
	}
	return nil
}
