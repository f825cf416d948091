package types

// NativeHandle is an opaque caller-owned buffer handle (e.g. a GBM buffer
// object, an Android ANativeWindowBuffer*, or a dmabuf-backed gralloc
// handle). hwc never interprets it directly; it is only ever passed to a
// nativebuffer.Handler for import.
type NativeHandle any

// Layer is one input surface for a frame: a source buffer plus the
// geometry and blend state needed to place it on screen. Layers are
// caller-owned and supplied fresh to Display.Present every frame; only
// fence ownership transfers into the pipeline (spec.md §3).
type Layer struct {
	// Handle is the native buffer backing this layer.
	Handle NativeHandle

	// SourceCrop selects the sampled region of the buffer, in buffer pixel
	// coordinates (may be fractional).
	SourceCrop RectF

	// DisplayFrame is the destination rectangle on the CRTC, in display
	// pixel coordinates.
	DisplayFrame Rect

	// Transform is the buffer-space rotation/reflection to apply.
	Transform Transform

	// Blending selects how this layer combines with what's beneath it.
	Blending BlendMode

	// Alpha is the plane/layer opacity in [0, 1].
	Alpha float32

	// Usage carries buffer usage hints (cursor, protected, video, ...).
	Usage Usage

	// AcquireFence must signal before the layer's buffer may be read.
	// Present takes ownership of it; the caller must not reuse it.
	AcquireFence Fence

	// ReleaseFence is filled in by Present with a fence that signals once
	// the producer may reuse this layer's buffer. It is reset to
	// InvalidFence when the frame is dropped (CommitBusy, spec.md §4.4).
	ReleaseFence Fence
}
