// Package dumb implements nativebuffer.Handler and
// compositor.RenderTargetAllocator over the kernel's DRM "dumb buffer"
// API: DRM_IOCTL_MODE_CREATE_DUMB to allocate, DRM_IOCTL_MODE_DESTROY_DUMB
// to free. It backs buffer import for the internal and virtual displays
// and the GPU compositor's offscreen render targets, where there is no GBM/window-
// system buffer to import. The ioctl numbers and struct layout are
// grounded on createDumbBuffer in this codebase's drm-flipper reference
// file.
package dumb

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gogpu/hwc/internal/bufferpool"
	"github.com/gogpu/hwc/types"
)

const (
	ioctlModeCreateDumb  = 0xc02064b2
	ioctlModeDestroyDumb = 0xc00464b4
)

// createDumbRequest mirrors struct drm_mode_create_dumb.
type createDumbRequest struct {
	Height uint32
	Width  uint32
	Bpp    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

// destroyDumbRequest mirrors struct drm_mode_destroy_dumb.
type destroyDumbRequest struct {
	Handle uint32
}

// Buffer is one dumb-buffer allocation: its kernel GEM handle plus the
// layout CreateFramebuffer/bufferpool need.
type Buffer struct {
	gemHandle uint32
	Width     uint32
	Height    uint32
	Stride    uint32
	Format    types.PixelFormat
}

// Handler allocates and imports dumb buffers against one open DRM device
// fd.
type Handler struct {
	fd uintptr

	mu   sync.Mutex
	rts  map[uint32][2]*Buffer // plane ID -> ping-pong render targets
	next map[uint32]int
}

// New creates a dumb-buffer handler against an already-open DRM device
// file descriptor. The caller retains ownership of fd.
func New(fd uintptr) *Handler {
	return &Handler{
		fd:   fd,
		rts:  make(map[uint32][2]*Buffer),
		next: make(map[uint32]int),
	}
}

// Allocate creates a new ARGB8888 dumb buffer of the given size.
func (h *Handler) Allocate(width, height uint32) (*Buffer, error) {
	req := createDumbRequest{Width: width, Height: height, Bpp: 32}
	if err := h.ioctl(ioctlModeCreateDumb, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("dumb: CREATE_DUMB: %w", err)
	}
	return &Buffer{
		gemHandle: req.Handle,
		Width:     width,
		Height:    height,
		Stride:    req.Pitch,
		Format:    types.FormatARGB8888,
	}, nil
}

// Free destroys a dumb buffer's kernel GEM object.
func (h *Handler) Free(b *Buffer) error {
	req := destroyDumbRequest{Handle: b.gemHandle}
	if err := h.ioctl(ioctlModeDestroyDumb, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("dumb: DESTROY_DUMB: %w", err)
	}
	return nil
}

// Import resolves handle — which must be a *Buffer this Handler
// allocated — to its structural descriptor. Dumb buffers have no dmabuf
// fd of their own; the GEM handle stands in for the plane fd field
// solely so internal/bufferpool's descriptor-equality dedup still
// distinguishes distinct allocations.
func (h *Handler) Import(handle types.NativeHandle) (bufferpool.Descriptor, error) {
	b, ok := handle.(*Buffer)
	if !ok {
		return bufferpool.Descriptor{}, fmt.Errorf("dumb: native handle %T is not a *dumb.Buffer", handle)
	}
	return bufferpool.Descriptor{
		Format: b.Format,
		Width:  b.Width,
		Height: b.Height,
		Planes: []bufferpool.PlaneLayout{{FD: int(b.gemHandle), Stride: b.Stride}},
	}, nil
}

// Release is a no-op: dumb buffers in this handler are owned by the
// render-target ping-pong cache (AcquireRenderTarget) and freed on Close,
// not per-frame.
func (h *Handler) Release(types.NativeHandle) error { return nil }

// AcquireRenderTarget implements compositor.RenderTargetAllocator,
// alternating between two dumb buffers per plane so the previous frame's
// composited output can still be scanned out while the compositor draws
// into the other.
func (h *Handler) AcquireRenderTarget(planeID uint32, width, height int) (types.NativeHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets, ok := h.rts[planeID]
	if !ok || targets[0] == nil || targets[0].Width != uint32(width) || targets[0].Height != uint32(height) {
		a, err := h.Allocate(uint32(width), uint32(height))
		if err != nil {
			return nil, err
		}
		b, err := h.Allocate(uint32(width), uint32(height))
		if err != nil {
			return nil, err
		}
		targets = [2]*Buffer{a, b}
		h.rts[planeID] = targets
		h.next[planeID] = 0
	}

	idx := h.next[planeID]
	h.next[planeID] = 1 - idx
	return targets[idx], nil
}

// Close frees every render target this handler has allocated.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var firstErr error
	for _, targets := range h.rts {
		for _, b := range targets {
			if b == nil {
				continue
			}
			if err := h.Free(b); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	h.rts = make(map[uint32][2]*Buffer)
	return firstErr
}

func (h *Handler) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, h.fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
