package types

// Transform describes the buffer-space transform applied to a layer before
// it is sampled onto the display frame. Values use a flipH=1, flipV=2,
// rot90=4 bit encoding in which rot180 is flipH|flipV and rot270 is
// rot90|rot180; they are not the DRM plane "rotation" property bits and
// are never written into an atomic request.
type Transform uint32

const (
	TransformIdentity Transform = 0
	TransformFlipH    Transform = 1 << 0
	TransformFlipV    Transform = 1 << 1
	TransformRot90    Transform = 1 << 2
	TransformRot180   Transform = TransformFlipH | TransformFlipV
	TransformRot270   Transform = TransformRot90 | TransformRot180
)

// Matrix returns the 3x3 row-major texture-coordinate transform matrix for
// t, selected from a static table indexed by the transform enum as spec'd
// for shader selection (§4.5).
func (t Transform) Matrix() [9]float32 {
	return transformMatrices[t&(TransformFlipH|TransformFlipV|TransformRot90)]
}

// transformMatrices is indexed by the low 3 transform bits (flipH, flipV,
// rot90 combine into rot180/rot270), covering all eight composite values.
var transformMatrices = [8][9]float32{
	TransformIdentity: {1, 0, 0, 0, 1, 0, 0, 0, 1},
	TransformFlipH:    {-1, 0, 1, 0, 1, 0, 0, 0, 1},
	TransformFlipV:    {1, 0, 0, 0, -1, 1, 0, 0, 1},
	TransformRot180:   {-1, 0, 1, 0, -1, 1, 0, 0, 1},
	TransformRot90:    {0, -1, 1, 1, 0, 0, 0, 0, 1},
	TransformRot90 | TransformFlipH: {0, 1, 0, 1, 0, 0, 0, 0, 1},
	TransformRot90 | TransformFlipV: {0, -1, 1, -1, 0, 1, 0, 0, 1},
	TransformRot270:                 {0, 1, 0, -1, 0, 1, 0, 0, 1},
}
