package compositor

import (
	"fmt"
	"sync"

	"github.com/gogpu/hwc/internal/plane"
	"github.com/gogpu/hwc/render"
	"github.com/gogpu/hwc/types"
)

// RenderTargetAllocator supplies the native buffer a render plane-state's
// GPU-composited output is drawn into. Implementations are expected to
// ping-pong between at least two buffers per plane so the previous
// frame's output can still be scanned out while the next is drawn.
type RenderTargetAllocator interface {
	AcquireRenderTarget(planeID uint32, width, height int) (types.NativeHandle, error)
}

// Compositor runs the GPU composition path (spec.md §4.5) for every
// plane.StateRender plane-state in a frame's composition: partitioning
// its layers into regions, drawing each region through a renderer, and
// binding the result back onto the plane-state via SetOutput so
// plane.Manager.Commit has a layer to scan out.
type Compositor struct {
	renderer render.Renderer
	targets  RenderTargetAllocator

	mu       sync.Mutex
	programs map[int]render.Program
}

// New creates a Compositor that draws through renderer, allocating render
// targets from targets.
func New(renderer render.Renderer, targets RenderTargetAllocator) *Compositor {
	return &Compositor{
		renderer: renderer,
		targets:  targets,
		programs: make(map[int]render.Program),
	}
}

// Draw renders every StateRender plane-state in composition and binds its
// output, importing the result into mgr's buffer registry so Commit can
// scan it out. layers is the frame's resolved layer list (as returned by
// plane.Manager.BeginFrameUpdate); importer resolves the composited
// output's native handle the same way the frame's input layers were
// resolved.
func (c *Compositor) Draw(mgr *plane.Manager, composition []*plane.State, layers []*plane.Layer, importer plane.Importer) error {
	byIndex := make(map[int]*plane.Layer, len(layers))
	frames := make(map[int]types.Rect, len(layers))
	for _, l := range layers {
		byIndex[l.Index] = l
		frames[l.Index] = l.DisplayFrame
	}

	for _, state := range composition {
		if state.State != plane.StateRender {
			continue
		}
		if err := c.renderState(mgr, state, byIndex, frames, importer); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compositor) renderState(mgr *plane.Manager, state *plane.State, byIndex map[int]*plane.Layer, frames map[int]types.Rect, importer plane.Importer) error {
	var rects []types.Rect
	for _, idx := range state.Layers {
		rects = append(rects, frames[idx])
	}
	extent := types.UnionAll(rects)
	if extent.IsEmpty() {
		return nil
	}
	w, h := extent.Width(), extent.Height()

	handle, err := c.targets.AcquireRenderTarget(state.Plane.ID, w, h)
	if err != nil {
		return fmt.Errorf("compositor: acquire render target for plane %d: %w", state.Plane.ID, err)
	}
	surf, err := c.renderer.CreateSurface(handle, w, h)
	if err != nil {
		return fmt.Errorf("compositor: create surface for plane %d: %w", state.Plane.ID, err)
	}

	for _, region := range Partition(state.Layers, frames) {
		if err := c.drawRegion(surf, region, byIndex, extent); err != nil {
			return err
		}
	}

	return c.bindOutput(mgr, state, handle, extent, importer)
}

func (c *Compositor) drawRegion(surf render.Surface, region Region, byIndex map[int]*plane.Layer, extent types.Rect) error {
	prog, err := c.program(len(region.Layers))
	if err != nil {
		return err
	}

	draws := make([]render.Draw, 0, len(region.Layers))
	for _, idx := range region.Layers {
		l := byIndex[idx]
		tex, err := c.renderer.ImportTexture(l.Handle)
		if err != nil {
			return fmt.Errorf("compositor: import texture for layer %d: %w", idx, err)
		}
		draws = append(draws, render.Draw{
			Texture:      tex,
			Viewport:     localRect(region.Rect, extent),
			Crop:         cropFor(l, region.Rect),
			Alpha:        l.Alpha,
			Blending:     l.Blending,
			TransformMat: l.Transform.Matrix(),
		})
	}
	return c.renderer.Draw(surf, prog, draws)
}

// bindOutput imports the just-drawn render target through the buffer
// registry (so its lifetime is tracked like any other overlay buffer),
// lazily creates its scanout framebuffer, and calls SetOutput with a
// layer describing the whole composited surface at full opacity.
func (c *Compositor) bindOutput(mgr *plane.Manager, state *plane.State, handle types.NativeHandle, extent types.Rect, importer plane.Importer) error {
	desc, err := importer.Import(handle)
	if err != nil {
		return fmt.Errorf("compositor: import composited output: %w", err)
	}
	buf := mgr.Buffers.Import(handle, desc)
	if _, ok := buf.Framebuffer(); !ok {
		fb, err := mgr.FBCreator.CreateFramebuffer(desc)
		if err != nil {
			return fmt.Errorf("compositor: create framebuffer for composited output: %w", err)
		}
		buf.SetFramebuffer(fb)
	}

	output := &plane.Layer{
		Layer: types.Layer{
			Handle:       handle,
			SourceCrop:   types.RectF{Left: 0, Top: 0, Right: float32(extent.Width()), Bottom: float32(extent.Height())},
			DisplayFrame: extent,
			Transform:    types.TransformIdentity,
			Blending:     types.BlendNone,
			Alpha:        1.0,
		},
		Index:  -1,
		Buffer: buf,
	}
	state.SetOutput(output)
	return nil
}

func (c *Compositor) program(textureCount int) (render.Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[textureCount]; ok {
		return p, nil
	}
	p, err := c.renderer.Program(textureCount)
	if err != nil {
		return nil, fmt.Errorf("compositor: create %d-texture program: %w", textureCount, err)
	}
	c.programs[textureCount] = p
	return p, nil
}

// localRect translates r from the shared display-frame coordinate space
// into a coordinate space local to a surface whose origin is origin.
func localRect(r, origin types.Rect) types.Rect {
	return types.Rect{
		Left:   r.Left - origin.Left,
		Top:    r.Top - origin.Top,
		Right:  r.Right - origin.Left,
		Bottom: r.Bottom - origin.Top,
	}
}

// cropFor maps region, a sub-rectangle of l's display frame, linearly
// onto l's source crop so a region only covering part of a layer samples
// the matching part of its buffer.
func cropFor(l *plane.Layer, region types.Rect) types.RectF {
	df := l.DisplayFrame
	sc := l.SourceCrop
	if df.Width() == 0 || df.Height() == 0 {
		return sc
	}
	x0 := float32(region.Left-df.Left) / float32(df.Width())
	x1 := float32(region.Right-df.Left) / float32(df.Width())
	y0 := float32(region.Top-df.Top) / float32(df.Height())
	y1 := float32(region.Bottom-df.Top) / float32(df.Height())
	return types.RectF{
		Left:   sc.Left + x0*sc.Width(),
		Right:  sc.Left + x1*sc.Width(),
		Top:    sc.Top + y0*sc.Height(),
		Bottom: sc.Top + y1*sc.Height(),
	}
}
