package software

import (
	"fmt"
	"image"

	"github.com/gogpu/hwc/render"
	"github.com/gogpu/hwc/types"
)

// texture wraps a decoded source image.
type texture struct {
	img image.Image
}

var _ render.Texture = (*texture)(nil)

// Decoder turns a caller-owned native handle into a decodable image. The
// zero Decoder assumes handle is already an image.Image, which is enough
// for the headless/test use this backend targets.
type Decoder interface {
	Decode(handle types.NativeHandle) (image.Image, error)
}

type defaultDecoder struct{}

func (defaultDecoder) Decode(handle types.NativeHandle) (image.Image, error) {
	img, ok := handle.(image.Image)
	if !ok {
		return nil, fmt.Errorf("software: native handle %T is not an image.Image", handle)
	}
	return img, nil
}
