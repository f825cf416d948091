// Package nativebuffer defines the boundary between hwc's core and
// whatever native buffer type a caller's window system or GPU allocator
// uses (a GBM buffer object, a dmabuf-backed gralloc handle, or this
// module's own dumb-buffer allocator in nativebuffer/dumb). hwc never
// interprets a types.NativeHandle directly; every handle is resolved
// through a Handler (spec.md §6).
package nativebuffer

import (
	"github.com/gogpu/hwc/internal/bufferpool"
	"github.com/gogpu/hwc/types"
)

// Handler resolves a caller-owned native buffer handle into its
// structural descriptor (format, dimensions, per-plane fd/stride/offset)
// and offers Release to drop whatever resources importing it held.
type Handler interface {
	// Import resolves handle to its buffer descriptor. Repeated imports
	// of structurally identical handles are expected to return equal
	// descriptors, so internal/bufferpool can dedup them.
	Import(handle types.NativeHandle) (bufferpool.Descriptor, error)

	// Release drops any resources Import acquired for handle (an
	// imported dmabuf fd duplicate, a mapped pointer, ...). Nothing in
	// hwc calls it: internal/bufferpool drops entries without calling
	// Release.
	Release(handle types.NativeHandle) error
}
