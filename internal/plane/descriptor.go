// Package plane implements the hardware plane assignment algorithm: given
// a per-frame layer list, it distributes layers across primary, overlay,
// and cursor planes and marks whatever is left over for GPU composition
// (spec.md §4.3, §4.4). The algorithm itself is a direct port of
// DisplayPlaneManager::ValidateLayers from the reference compositor this
// specification was distilled from; the surrounding Go shape (typed
// errors, interface-bound atomic commit) follows this codebase's HAL
// backend-interface convention.
package plane

import (
	"github.com/gogpu/hwc/internal/bufferpool"
	"github.com/gogpu/hwc/types"
)

// Kind identifies a plane's role.
type Kind int

const (
	KindPrimary Kind = iota
	KindOverlay
	KindCursor
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "Primary"
	case KindOverlay:
		return "Overlay"
	case KindCursor:
		return "Cursor"
	default:
		return "Unknown"
	}
}

// Descriptor is one hardware scanout plane.
type Descriptor struct {
	ID            uint32
	Kind          Kind
	PossibleCRTCs uint32
	Caps          PlaneCaps

	enabled bool
}

// IsEnabled reports whether this plane is scheduled to be enabled in the
// in-progress commit.
func (d *Descriptor) IsEnabled() bool { return d.enabled }

// SetEnabled marks whether this plane is scheduled to be enabled.
func (d *Descriptor) SetEnabled(enabled bool) { d.enabled = enabled }

// ValidateLayer reports whether this plane can scan out layer directly:
// its format must be in the plane's supported list, its destination size
// must fit the plane's min/max bounds, and if the plane can't crop, the
// source crop must cover the whole buffer.
func (d *Descriptor) ValidateLayer(l *Layer) bool {
	if l.Buffer == nil {
		return false
	}
	if !d.supportsFormat(l.Buffer.Descriptor.Format) {
		return false
	}

	w := uint32(l.DisplayFrame.Width())
	h := uint32(l.DisplayFrame.Height())
	if w == 0 || h == 0 {
		return false
	}
	if d.Caps.MinWidth != 0 && w < d.Caps.MinWidth {
		return false
	}
	if d.Caps.MaxWidth != 0 && w > d.Caps.MaxWidth {
		return false
	}
	if d.Caps.MinHeight != 0 && h < d.Caps.MinHeight {
		return false
	}
	if d.Caps.MaxHeight != 0 && h > d.Caps.MaxHeight {
		return false
	}

	if !d.Caps.SupportsCrop {
		if l.SourceCrop.Width() != float32(l.Buffer.Descriptor.Width) ||
			l.SourceCrop.Height() != float32(l.Buffer.Descriptor.Height) {
			return false
		}
	}
	if !d.Caps.SupportsAlpha && l.Alpha != 1.0 {
		return false
	}
	return true
}

func (d *Descriptor) supportsFormat(f types.PixelFormat) bool {
	if len(d.Caps.Formats) == 0 {
		return true
	}
	for _, c := range d.Caps.Formats {
		if c == f {
			return true
		}
	}
	return false
}

// UpdateProperties queues this plane's property writes (fb id, crtc,
// source/destination rectangles) into req for layer. No alpha or fence
// property is written.
func (d *Descriptor) UpdateProperties(req AtomicRequest, crtcID uint32, l *Layer) error {
	fb, ok := l.Buffer.Framebuffer()
	if !ok {
		return errBadHandle("Descriptor.UpdateProperties")
	}
	props := map[string]uint64{
		"FB_ID":   uint64(fb),
		"CRTC_ID": uint64(crtcID),
		"SRC_X":   uint64(l.SourceCrop.Left) << 16,
		"SRC_Y":   uint64(l.SourceCrop.Top) << 16,
		"SRC_W":   uint64(l.SourceCrop.Width()) << 16,
		"SRC_H":   uint64(l.SourceCrop.Height()) << 16,
		"CRTC_X":  uint64(l.DisplayFrame.Left),
		"CRTC_Y":  uint64(l.DisplayFrame.Top),
		"CRTC_W":  uint64(l.DisplayFrame.Width()),
		"CRTC_H":  uint64(l.DisplayFrame.Height()),
	}
	for name, value := range props {
		if err := req.SetPlaneProperty(d.ID, name, value); err != nil {
			return err
		}
	}
	return nil
}

// Disable queues a property write that detaches this plane from its
// framebuffer and CRTC.
func (d *Descriptor) Disable(req AtomicRequest) error {
	if err := req.SetPlaneProperty(d.ID, "FB_ID", 0); err != nil {
		return err
	}
	return req.SetPlaneProperty(d.ID, "CRTC_ID", 0)
}

// Layer is one input layer plus the overlay buffer it resolved to via the
// bufferpool registry and its original index in the frame's layer list.
type Layer struct {
	types.Layer
	Index  int
	Buffer *bufferpool.Buffer
}
