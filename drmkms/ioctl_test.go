package drmkms

import (
	"testing"
	"unsafe"
)

func TestIocEncodesDirectionTypeNrSize(t *testing.T) {
	got := ioc(iocWrite|iocRead, 0xBC, 56)
	want := uintptr(3)<<30 | uintptr(56)<<16 | uintptr(drmIoctlType)<<8 | 0xBC
	if got != want {
		t.Fatalf("ioc() = %#x, want %#x", got, want)
	}
}

func TestIowrAndIorDiffer(t *testing.T) {
	w := iowr(0x10, 8)
	r := ior(0x10, 8)
	if w == r {
		t.Fatal("iowr and ior produced identical request numbers for the same nr/size")
	}
}

func TestAtomicIoctlNumberIsStable(t *testing.T) {
	var req modeAtomic
	got := ioctlModeAtomic(unsafe.Sizeof(req))
	want := ioctlModeAtomic(unsafe.Sizeof(modeAtomic{}))
	if got != want {
		t.Fatalf("ioctlModeAtomic produced different numbers for equivalent structs: %#x vs %#x", got, want)
	}
}
