package drmkms

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/hwc/internal/bufferpool"
)

// CreateFramebuffer implements internal/plane.FramebufferCreator via
// ADDFB2, which (unlike the legacy single-plane ADDFB) accepts a buffer
// descriptor's full per-plane handle/pitch/offset/modifier layout
// directly.
func (d *Device) CreateFramebuffer(desc bufferpool.Descriptor) (uint32, error) {
	if len(desc.Planes) == 0 || len(desc.Planes) > 4 {
		return 0, fmt.Errorf("drmkms: CreateFramebuffer: descriptor has %d planes, want 1-4", len(desc.Planes))
	}

	req := modeFBCmd2{
		Width:       desc.Width,
		Height:      desc.Height,
		PixelFormat: uint32(desc.Format),
	}
	for i, p := range desc.Planes {
		req.Handles[i] = uint32(p.FD)
		req.Pitches[i] = p.Stride
		req.Offsets[i] = p.Offset
		req.Modifier[i] = desc.Modifier
	}

	if err := d.ioctl(ioctlModeAddFB2(unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("drmkms: ADDFB2: %w", err)
	}
	return req.FbID, nil
}
