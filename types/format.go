package types

// PixelFormat is a DRM FourCC pixel format code (e.g. the value of
// DRM_FORMAT_ARGB8888). It is kept as an opaque uint32 rather than an
// enum since the kernel's format list is open-ended and plane capability
// sets are reported at runtime.
type PixelFormat uint32

// FourCC builds a PixelFormat from four format-code characters, matching
// the kernel's DRM_FORMAT_* macro (e.g. FourCC('A', 'R', '2', '4') ==
// DRM_FORMAT_ARGB8888).
func FourCC(a, b, c, d byte) PixelFormat {
	return PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// Common formats used throughout the compositor and its tests.
var (
	FormatARGB8888 = FourCC('A', 'R', '2', '4')
	FormatXRGB8888 = FourCC('X', 'R', '2', '4')
	FormatABGR8888 = FourCC('A', 'B', '2', '4')
	FormatNV12     = FourCC('N', 'V', '1', '2')
)

func (f PixelFormat) String() string {
	b := [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	return string(b[:])
}

// Usage is a bitmask of buffer usage hints attached to an overlay buffer,
// matching spec.md §3's usage bits.
type Usage uint32

const (
	UsageScanout Usage = 1 << iota
	UsageCursor
	UsageVideo
	UsageProtected
)

// Has reports whether all bits in mask are set.
func (u Usage) Has(mask Usage) bool { return u&mask == mask }
