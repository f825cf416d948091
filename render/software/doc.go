// Package software implements render.Renderer on the CPU, for headless
// displays and tests where no GLES context is available. It adapts this
// codebase's hal/software/raster tile-based rasterizer vocabulary
// (region, tile) from triangle rasterization to axis-aligned layer
// compositing, and uses golang.org/x/image/draw for the per-layer
// scale+blend pass.
package software
