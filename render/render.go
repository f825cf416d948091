// Package render defines the rendering-backend boundary the GPU
// compositor draws through (spec.md §6): surface lifetime, buffer
// import, shader program selection by texture count, and region
// drawing. One backend implements it in this module: render/software
// (CPU rasterizer, used headless and in tests); there is no GLES backend.
//
// The interface shape follows this codebase's hal.Backend/hal.Instance
// convention: a narrow set of verbs the compositor calls, with all
// platform-specific state kept behind the concrete implementation.
package render

import "github.com/gogpu/hwc/types"

// Surface is an opaque render target: either an onscreen surface bound to
// a DRM/GBM buffer or an offscreen surface bound to a caller-supplied
// native handle.
type Surface interface {
	// MakeCurrent binds this surface's rendering context to the calling
	// goroutine's OS thread.
	MakeCurrent() error

	// Size returns the surface's pixel dimensions.
	Size() (width, height int)
}

// Texture is an imported, sampleable view of a native buffer.
type Texture interface{}

// Program is a shader program compiled to sample and blend a fixed
// number of textures, selected by texture count (spec.md §4.5).
type Program interface {
	// TextureCount reports how many textures this program samples.
	TextureCount() int
}

// Draw describes one region's contribution from a single layer: where it
// lands in the destination surface, what part of the source texture to
// sample, and how to blend it.
type Draw struct {
	Texture      Texture
	Viewport     types.Rect
	Crop         types.RectF
	Alpha        float32
	Blending     types.BlendMode
	TransformMat [9]float32
}

// Renderer is the rendering backend boundary.
type Renderer interface {
	// CreateSurface creates an onscreen surface backed by handle, or (if
	// handle is nil) an offscreen surface of the given size.
	CreateSurface(handle types.NativeHandle, width, height int) (Surface, error)

	// DestroySurface releases a surface created by CreateSurface.
	DestroySurface(s Surface) error

	// ImportTexture imports a native buffer handle as a sampleable
	// texture.
	ImportTexture(handle types.NativeHandle) (Texture, error)

	// Program returns a shader program that samples textureCount
	// textures and blends them in the order they are later issued to
	// Draw.
	Program(textureCount int) (Program, error)

	// Draw issues draws, in order, into surface using prog.
	Draw(s Surface, prog Program, draws []Draw) error

	// OutFence returns a fence that signals once every Draw issued to s
	// since the last call to OutFence has completed on the GPU.
	OutFence(s Surface) (types.Fence, error)
}
