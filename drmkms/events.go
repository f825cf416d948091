package drmkms

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Event types from uapi/drm/drm.h's struct drm_event.
const (
	eventTypeVblank     = 0x01
	eventTypeFlipComplete = 0x02
	drmEventHeaderSize  = 8 // type uint32 + length uint32
)

// drm_event_vblank's payload after the common header: the cookie passed
// as user_data at commit time, then tv_sec, tv_usec, sequence, and
// crtc_id.
const vblankPayloadSize = 8 + 4 + 4 + 4 + 4 // user_data, sec, usec, sequence, crtc_id

// ReadEvents drains every pending page-flip/vblank event from the
// device's fd without blocking, calling onFlip once per completion event
// with the commit's cookie and an estimated monotonic timestamp derived
// from the kernel's tv_sec/tv_usec fields. It is meant to be called from
// internal/eventloop's OnDRMEvent handler, on the event-loop thread.
func (d *Device) ReadEvents(onFlip func(cookie uint64, timestampNanos int64)) error {
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(d.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return nil
			}
			return fmt.Errorf("drmkms: read events: %w", err)
		}
		if n == 0 {
			return nil
		}

		off := 0
		for off+drmEventHeaderSize <= n {
			evType := binary.LittleEndian.Uint32(buf[off:])
			evLen := binary.LittleEndian.Uint32(buf[off+4:])
			if evLen == 0 || int(evLen) > n-off {
				return nil
			}
			payload := buf[off+drmEventHeaderSize : off+int(evLen)]

			if evType == eventTypeFlipComplete && len(payload) >= vblankPayloadSize {
				cookie := binary.LittleEndian.Uint64(payload[0:8])
				sec := binary.LittleEndian.Uint32(payload[8:12])
				usec := binary.LittleEndian.Uint32(payload[12:16])
				onFlip(cookie, int64(sec)*1e9+int64(usec)*1e3)
			}

			off += int(evLen)
		}
	}
}
