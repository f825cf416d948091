package software

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/hwc/render"
	"github.com/gogpu/hwc/types"
)

// Renderer implements render.Renderer entirely on the CPU.
type Renderer struct {
	decoder Decoder
}

var _ render.Renderer = (*Renderer)(nil)

// New creates a software renderer. A nil decoder uses defaultDecoder,
// which requires every native handle to already be an image.Image.
func New(decoder Decoder) *Renderer {
	if decoder == nil {
		decoder = defaultDecoder{}
	}
	return &Renderer{decoder: decoder}
}

func (r *Renderer) CreateSurface(handle types.NativeHandle, width, height int) (render.Surface, error) {
	return &surface{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		handle: handle,
	}, nil
}

func (r *Renderer) DestroySurface(render.Surface) error { return nil }

func (r *Renderer) ImportTexture(handle types.NativeHandle) (render.Texture, error) {
	img, err := r.decoder.Decode(handle)
	if err != nil {
		return nil, err
	}
	return &texture{img: img}, nil
}

func (r *Renderer) Program(textureCount int) (render.Program, error) {
	return program{count: textureCount}, nil
}

// Draw composites each draw's cropped, transformed source onto s's
// backing image in order, honoring blend mode and alpha.
func (r *Renderer) Draw(s render.Surface, _ render.Program, draws []render.Draw) error {
	sf := s.(*surface)
	for _, d := range draws {
		tex := d.Texture.(*texture)

		cropped := cropImage(tex.img, d.Crop)
		transformed := applyTransform(cropped, matchTransform(d.TransformMat))

		viewport := image.Rect(d.Viewport.Left, d.Viewport.Top, d.Viewport.Right, d.Viewport.Bottom)
		scaled := image.NewRGBA(image.Rect(0, 0, viewport.Dx(), viewport.Dy()))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), transformed, transformed.Bounds(), xdraw.Src, nil)

		op := draw.Over
		if d.Blending == types.BlendNone {
			op = draw.Src
		}
		drawWithAlpha(sf.img, viewport, scaled, d.Alpha, op)
	}
	return nil
}

func (r *Renderer) OutFence(render.Surface) (types.Fence, error) {
	return types.InvalidFence, nil
}

type program struct{ count int }

func (p program) TextureCount() int { return p.count }

func cropImage(img image.Image, crop types.RectF) image.Image {
	b := image.Rect(int(crop.Left), int(crop.Top), int(crop.Right), int(crop.Bottom))
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(b)
	}
	return img
}

// matchTransform reverse-looks-up which of the eight canonical transforms
// produced matrix m, defaulting to identity.
func matchTransform(m [9]float32) types.Transform {
	candidates := []types.Transform{
		types.TransformIdentity,
		types.TransformFlipH,
		types.TransformFlipV,
		types.TransformRot90,
		types.TransformRot180,
		types.TransformRot270,
		types.TransformFlipH | types.TransformRot90,
		types.TransformFlipV | types.TransformRot90,
	}
	for _, t := range candidates {
		if t.Matrix() == m {
			return t
		}
	}
	return types.TransformIdentity
}

// applyTransform returns a copy of img flipped/rotated per t. Since the
// transform enum only ever names these eight discrete cases, this is a
// set of pixel-index remaps rather than a general affine sampler.
func applyTransform(img image.Image, t types.Transform) image.Image {
	if t == types.TransformIdentity {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	rotated := t&types.TransformRot90 != 0
	outW, outH := w, h
	if rotated {
		outW, outH = h, w
	}
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x, y
			if t&types.TransformFlipH != 0 {
				sx = w - 1 - sx
			}
			if t&types.TransformFlipV != 0 {
				sy = h - 1 - sy
			}
			dx, dy := sx, sy
			if rotated {
				dx, dy = sy, w-1-sx
			}
			out.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// drawWithAlpha composites src into dst at rect with a uniform extra
// alpha multiplier, using op for the final combine.
func drawWithAlpha(dst *image.RGBA, rect image.Rectangle, src image.Image, alpha float32, op draw.Op) {
	if alpha >= 0.999 {
		draw.Draw(dst, rect, src, image.Point{}, op)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(alpha * 255)})
	draw.DrawMask(dst, rect, src, image.Point{}, mask, image.Point{}, op)
}
