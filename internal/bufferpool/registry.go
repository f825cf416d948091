// Package bufferpool implements the per-display overlay buffer registry
// (spec.md §4.2): an insertion-ordered mapping from imported native handle
// to a ref-counted overlay buffer, deduplicated on structural identity.
//
// The registry is a mutex-guarded slice searched linearly on import, with
// no free list or index reuse; its in_use/ref-count lifecycle is grounded
// on the reference compositor's DisplayPlaneManager::GetOverlayBuffer and
// EndFrameUpdate.
package bufferpool

import (
	"sync"

	"github.com/gogpu/hwc/types"
)

// Buffer is one entry in the registry: an imported buffer plus the
// bookkeeping needed to decide when it can be dropped.
type Buffer struct {
	Descriptor Descriptor
	Handle     types.NativeHandle

	// fb is the scanout framebuffer id, created lazily on first GPU
	// composition fallback (displayplanemanager.cpp's CreateFrameBuffer).
	// Zero means "not yet created".
	fb uint32

	inUse    bool
	refCount int
}

// InUse reports whether this buffer is bound to a plane committed in the
// current frame.
func (b *Buffer) InUse() bool { return b.inUse }

// RefCount returns the buffer's current reference count.
func (b *Buffer) RefCount() int { return b.refCount }

// Framebuffer returns the cached scanout framebuffer id and whether one
// has been created yet.
func (b *Buffer) Framebuffer() (uint32, bool) { return b.fb, b.fb != 0 }

// SetFramebuffer caches the scanout framebuffer id created for this
// buffer, so subsequent frames don't recreate it.
func (b *Buffer) SetFramebuffer(fb uint32) { b.fb = fb }

// Registry is the per-display overlay buffer pool.
type Registry struct {
	mu      sync.Mutex
	buffers []*Buffer
}

// NewRegistry creates an empty buffer registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Import resolves handle/desc to a Buffer. If an existing entry has a
// structurally identical Descriptor its ref count is incremented and it
// is returned; otherwise a new entry is appended (spec.md §4.2).
func (r *Registry) Import(handle types.NativeHandle, desc Descriptor) *Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.buffers {
		if b.Descriptor.Equal(desc) {
			b.refCount++
			return b
		}
	}

	b := &Buffer{Descriptor: desc, Handle: handle}
	r.buffers = append(r.buffers, b)
	return b
}

// BeginFrame marks every buffer in_use = false, ahead of the frame binding
// a subset of them to planes.
func (r *Registry) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.buffers {
		b.inUse = false
	}
}

// MarkInUse flags buf as bound to a committed plane this frame.
func (r *Registry) MarkInUse(buf *Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf.inUse = true
}

// EndFrame iterates the pool: in-use buffers have their ref count
// incremented (retained through at least one more flip); buffers not in
// use this frame have their ref count decremented, and any whose ref
// count falls below zero are deleted from the registry.
func (r *Registry) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.buffers[:0]
	for _, b := range r.buffers {
		if b.inUse {
			b.refCount++
			kept = append(kept, b)
			continue
		}

		b.refCount--
		if b.refCount >= 0 {
			kept = append(kept, b)
			continue
		}
		// refCount < 0: drop this entry, it was imported but never bound
		// to a plane on a subsequent frame.
	}
	r.buffers = kept
}

// Len reports the number of buffers currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}
