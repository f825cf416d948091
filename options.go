// Package hwc implements a hardware compositor for Linux DRM/KMS: it
// assigns layers to scanout planes where possible, falls back to GPU
// composition for the rest, and drives the atomic-commit/page-flip
// pipeline on a single dedicated event thread per device.
//
// The public surface is Device (one DRM device) and Display (one
// connector's present pipeline); everything else is reached only through
// the render, nativebuffer, and drmkms interfaces so the core never
// depends on a concrete GPU or ioctl backend.
package hwc

import "github.com/gogpu/hwc/render"

// Options configures Device.Initialize, the same way the teacher's
// CreateInstance takes an InstanceDescriptor with a Default constructor.
type Options struct {
	// CardPath is the DRM device node to open, e.g. "/dev/dri/card0".
	CardPath string

	// Debug is stored with the Device's options; no code reads it. How
	// much is logged depends only on the logger passed to
	// hwclog.SetLogger.
	Debug bool

	// ExplicitSync selects explicit per-layer fence handoff over the
	// implicit timeline-only path. Reserved for a future drmkms backend
	// that reads back OUT_FENCE_PTR; the current backend always uses the
	// implicit timeline path regardless of this flag.
	ExplicitSync bool

	// Renderer overrides the GPU composition backend. If nil,
	// Device.Initialize uses render/software, which is always available
	// and requires no GBM/EGL context.
	Renderer render.Renderer
}

// DefaultOptions returns the options used when a caller has no
// particular DRM node or renderer preference.
func DefaultOptions() Options {
	return Options{CardPath: "/dev/dri/card0"}
}
