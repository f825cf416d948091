package drmkms

// The structs below mirror the kernel's uapi/drm/drm_mode.h layouts,
// following the same field-for-field translation style as
// drmModeCreateDumb/drmModeFbCmd/drmModePageFlip in this codebase's
// drm-flipper reference file.

type modeResources struct {
	FbIDPtr        uint64
	CrtcIDPtr      uint64
	ConnectorIDPtr uint64
	EncoderIDPtr   uint64
	CountFbs       uint32
	CountCrtcs     uint32
	CountConnectors uint32
	CountEncoders  uint32
	MinWidth       uint32
	MaxWidth       uint32
	MinHeight      uint32
	MaxHeight      uint32
}

type modeModeInfo struct {
	Clock      uint32
	Hdisplay   uint16
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Hskew      uint16
	Vdisplay   uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	Vscan      uint16
	Vrefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

type modeCrtc struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID           uint32
	FbID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             modeModeInfo
}

type modeGetEncoder struct {
	EncoderID     uint32
	EncoderType   uint32
	CrtcID        uint32
	PossibleCrtcs uint32
	PossibleClones uint32
}

type modeGetConnector struct {
	EncodersPtr   uint64
	ModesPtr      uint64
	PropsPtr      uint64
	PropValuesPtr uint64

	CountModes    uint32
	CountProps    uint32
	CountEncoders uint32

	EncoderID    uint32
	ConnectorID  uint32
	ConnectorType uint32
	ConnectorTypeID uint32

	Connection     uint32
	MmWidth        uint32
	MmHeight       uint32
	Subpixel       uint32

	Pad uint32
}

type modeGetProperty struct {
	ValuesPtr uint64
	EnumBlobPtr uint64
	PropID    uint32
	Flags     uint32
	Name      [32]byte
	CountValues uint32
	CountEnumBlobs uint32
}

type modeGetPropBlob struct {
	BlobID uint32
	Length uint32
	Data   uint64
}

type modeFBCmd struct {
	FbID   uint32
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint32
	Depth  uint32
	Handle uint32
}

// modeFBCmd2 mirrors struct drm_mode_fb_cmd2, used for ADDFB2 so a
// framebuffer can be created directly from a buffer descriptor's
// per-plane layout instead of the single-plane legacy ADDFB path.
type modeFBCmd2 struct {
	FbID    uint32
	Width   uint32
	Height  uint32
	PixelFormat uint32
	Flags   uint32
	Handles [4]uint32
	Pitches [4]uint32
	Offsets [4]uint32
	Modifier [4]uint64
}

type modePageFlip struct {
	CrtcID   uint32
	FbID     uint32
	Flags    uint32
	Reserved uint32
	UserData uint64
}

type modeCreateDumb struct {
	Height uint32
	Width  uint32
	Bpp    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

type modeDestroyDumb struct {
	Handle uint32
}

type modeGetPlaneResources struct {
	PlaneIDPtr uint64
	CountPlanes uint32
}

type modeGetPlane struct {
	PlaneID      uint32
	CrtcID       uint32
	FbID         uint32
	PossibleCrtcs uint32
	GammaSize    uint32
	CountFormatTypes uint32
	FormatTypePtr uint64
}

type modeObjGetProperties struct {
	PropsPtr      uint64
	PropValuesPtr uint64
	CountProps    uint32
	ObjID         uint32
	ObjType       uint32
}

// modeAtomic mirrors struct drm_mode_atomic: parallel arrays of object
// IDs (one entry per touched object), how many properties each object
// contributes, and flattened property-ID/value arrays across every
// object.
type modeAtomic struct {
	Flags         uint32
	CountObjs     uint32
	ObjsPtr       uint64
	CountPropsPtr uint64
	PropsPtr      uint64
	PropValuesPtr uint64
	ReservedUnused uint64
	UserData      uint64
}

type modeCreatePropBlob struct {
	Data   uint64
	Length uint32
	BlobID uint32
}

type modeDestroyPropBlob struct {
	BlobID uint32
}

// Object types for OBJ_GETPROPERTIES, from uapi/drm/drm_mode.h.
const (
	objCrtc      = 0xcccccccc
	objConnector = 0xc0c0c0c0
	objEncoder   = 0xe0e0e0e0
	objPlane     = 0xeeeeeeee
)

// Atomic commit flags, from uapi/drm/drm_mode.h.
const (
	modeAtomicFlagsTestOnly    = 1 << 8
	modeAtomicFlagsNonblock    = 1 << 9
	modeAtomicFlagsAllowModeset = 1 << 10
	modePageFlipEventFlag      = 1 << 0
)
