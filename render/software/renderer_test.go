package software

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/hwc/render"
	"github.com/gogpu/hwc/types"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCreateSurfaceSize(t *testing.T) {
	r := New(nil)
	s, err := r.CreateSurface(nil, 64, 32)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	w, h := s.Size()
	if w != 64 || h != 32 {
		t.Fatalf("Size() = (%d, %d), want (64, 32)", w, h)
	}
}

func TestImportTextureRejectsNonImage(t *testing.T) {
	r := New(nil)
	if _, err := r.ImportTexture("not an image"); err == nil {
		t.Fatal("ImportTexture: want error for non-image.Image handle, got nil")
	}
}

func TestDrawOpaqueFillsViewport(t *testing.T) {
	r := New(nil)
	s, err := r.CreateSurface(nil, 4, 4)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	red := solidImage(2, 2, color.RGBA{255, 0, 0, 255})
	tex, err := r.ImportTexture(red)
	if err != nil {
		t.Fatalf("ImportTexture: %v", err)
	}
	prog, err := r.Program(1)
	if err != nil {
		t.Fatalf("Program: %v", err)
	}

	draws := []render.Draw{{
		Texture:      tex,
		Viewport:     types.Rect{Left: 0, Top: 0, Right: 4, Bottom: 4},
		Crop:         types.RectF{Left: 0, Top: 0, Right: 2, Bottom: 2},
		Alpha:        1.0,
		Blending:     types.BlendNone,
		TransformMat: types.TransformIdentity.Matrix(),
	}}
	if err := r.Draw(s, prog, draws); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	sf := s.(*surface)
	got := sf.img.RGBAAt(0, 0)
	if got.R != 255 || got.G != 0 || got.B != 0 {
		t.Fatalf("pixel(0,0) = %+v, want opaque red", got)
	}
}

func TestDrawHonorsAlpha(t *testing.T) {
	r := New(nil)
	s, err := r.CreateSurface(nil, 2, 2)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	sf := s.(*surface)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			sf.img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	white := solidImage(2, 2, color.RGBA{255, 255, 255, 255})
	tex, _ := r.ImportTexture(white)
	prog, _ := r.Program(1)

	draws := []render.Draw{{
		Texture:      tex,
		Viewport:     types.Rect{Left: 0, Top: 0, Right: 2, Bottom: 2},
		Crop:         types.RectF{Left: 0, Top: 0, Right: 2, Bottom: 2},
		Alpha:        0.5,
		Blending:     types.BlendPremultiplied,
		TransformMat: types.TransformIdentity.Matrix(),
	}}
	if err := r.Draw(s, prog, draws); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	got := sf.img.RGBAAt(0, 0)
	if got.R == 0 || got.R == 255 {
		t.Fatalf("pixel(0,0).R = %d, want a value between black and white from half-alpha blend", got.R)
	}
}

func TestOutFenceIsInvalidForSoftwareBackend(t *testing.T) {
	r := New(nil)
	s, _ := r.CreateSurface(nil, 1, 1)
	f, err := r.OutFence(s)
	if err != nil {
		t.Fatalf("OutFence: %v", err)
	}
	if f != types.InvalidFence {
		t.Fatalf("OutFence = %v, want InvalidFence (software composition is synchronous)", f)
	}
}

func TestMatchTransformRoundTrip(t *testing.T) {
	all := []types.Transform{
		types.TransformIdentity,
		types.TransformFlipH,
		types.TransformFlipV,
		types.TransformRot90,
		types.TransformRot180,
		types.TransformRot270,
	}
	for _, tr := range all {
		got := matchTransform(tr.Matrix())
		if got.Matrix() != tr.Matrix() {
			t.Errorf("matchTransform(%v.Matrix()) = %v, want matching matrix", tr, got)
		}
	}
}
