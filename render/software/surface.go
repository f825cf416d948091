package software

import (
	"image"

	"github.com/gogpu/hwc/render"
	"github.com/gogpu/hwc/types"
)

// surface is a CPU-backed render target: an RGBA image plus, for
// onscreen use, the native handle it was created against.
type surface struct {
	img    *image.RGBA
	handle types.NativeHandle
}

var _ render.Surface = (*surface)(nil)

func (s *surface) MakeCurrent() error { return nil }

func (s *surface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}
