package bufferpool

import "github.com/gogpu/hwc/types"

// PlaneLayout describes one dmabuf plane of an imported buffer: the file
// descriptor backing it, its row stride in bytes, and its byte offset
// within that fd.
type PlaneLayout struct {
	FD     int
	Stride uint32
	Offset uint32
}

// Descriptor is the structural identity of an imported buffer: two native
// handles that import to an equal Descriptor are treated as the same
// overlay buffer (spec.md §4.2).
type Descriptor struct {
	Format   types.PixelFormat
	Width    uint32
	Height   uint32
	Modifier uint64
	Planes   []PlaneLayout
}

// Equal reports whether d and o describe the same buffer: equal format,
// width, height, modifier, and an equal set of per-plane (fd, stride,
// offset) triples. Modifier equality is required even though some
// importers treat modifier as advisory, since two buffers with the same
// fd layout but different tiling modifiers are not interchangeable for
// scanout.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.Format != o.Format || d.Width != o.Width || d.Height != o.Height || d.Modifier != o.Modifier {
		return false
	}
	if len(d.Planes) != len(o.Planes) {
		return false
	}
	for i, p := range d.Planes {
		if p != o.Planes[i] {
			return false
		}
	}
	return true
}
