package types

import "testing"

func TestRectUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 30, 30}, Rect{0, 0, 30, 30}},
		{"overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 15, 15}, Rect{0, 0, 15, 15}},
		{"empty rhs", Rect{0, 0, 10, 10}, Rect{}, Rect{0, 0, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Union(tt.b); got != tt.want {
				t.Errorf("Union() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 15, 15}, true},
		{"touching edges", Rect{0, 0, 10, 10}, Rect{10, 0, 20, 10}, false},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 30, 30}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransformMatrixIdentity(t *testing.T) {
	want := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if got := TransformIdentity.Matrix(); got != want {
		t.Errorf("Identity.Matrix() = %v, want %v", got, want)
	}
}

func TestTransformRot270IsRot90PlusRot180(t *testing.T) {
	if TransformRot270 != TransformRot90|TransformRot180 {
		t.Errorf("TransformRot270 should equal Rot90|Rot180")
	}
}

func TestBlendModeString(t *testing.T) {
	tests := []struct {
		mode BlendMode
		want string
	}{
		{BlendNone, "None"},
		{BlendPremultiplied, "Premultiplied"},
		{BlendCoverage, "Coverage"},
		{BlendMode(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("BlendMode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestFourCCRoundTrip(t *testing.T) {
	if got, want := FormatARGB8888.String(), "AR24"; got != want {
		t.Errorf("FormatARGB8888.String() = %q, want %q", got, want)
	}
}

func TestUsageHas(t *testing.T) {
	u := UsageScanout | UsageCursor
	if !u.Has(UsageCursor) {
		t.Errorf("expected Has(UsageCursor) to be true")
	}
	if u.Has(UsageVideo) {
		t.Errorf("expected Has(UsageVideo) to be false")
	}
}

func TestFenceValid(t *testing.T) {
	if InvalidFence.Valid() {
		t.Errorf("InvalidFence should not be valid")
	}
	if !Fence(0).Valid() {
		t.Errorf("Fence(0) should be valid")
	}
}
