package compositor

import (
	"testing"

	"github.com/gogpu/hwc/types"
)

func unionRect(regions []Region) types.Rect {
	var rects []types.Rect
	for _, r := range regions {
		rects = append(rects, r.Rect)
	}
	return types.UnionAll(rects)
}

func TestPartitionNonOverlapping(t *testing.T) {
	frames := map[int]types.Rect{
		0: {Left: 0, Top: 0, Right: 100, Bottom: 100},
		1: {Left: 50, Top: 50, Right: 150, Bottom: 150},
	}
	regions := Partition([]int{0, 1}, frames)

	for i := range regions {
		for j := range regions {
			if i == j {
				continue
			}
			if regions[i].Rect.Intersects(regions[j].Rect) {
				t.Errorf("regions %d and %d overlap: %+v, %+v", i, j, regions[i].Rect, regions[j].Rect)
			}
		}
	}
}

func TestPartitionUnionMatchesInputUnion(t *testing.T) {
	frames := map[int]types.Rect{
		0: {Left: 0, Top: 0, Right: 100, Bottom: 100},
		1: {Left: 50, Top: 50, Right: 150, Bottom: 150},
	}
	want := types.UnionAll([]types.Rect{frames[0], frames[1]})
	got := unionRect(Partition([]int{0, 1}, frames))

	if got != want {
		t.Errorf("union of regions = %+v, want %+v", got, want)
	}
}

func TestPartitionDisjointLayersProduceOneRegionEach(t *testing.T) {
	frames := map[int]types.Rect{
		0: {Left: 0, Top: 0, Right: 50, Bottom: 50},
		1: {Left: 100, Top: 100, Right: 150, Bottom: 150},
	}
	regions := Partition([]int{0, 1}, frames)

	if len(regions) != 2 {
		t.Fatalf("len(regions) = %d, want 2 for fully disjoint layers", len(regions))
	}
	for _, r := range regions {
		if len(r.Layers) != 1 {
			t.Errorf("region %+v has %d layers, want 1", r, len(r.Layers))
		}
	}
}

func TestPartitionFullOverlapProducesSingleRegionWithBothLayers(t *testing.T) {
	frames := map[int]types.Rect{
		0: {Left: 0, Top: 0, Right: 100, Bottom: 100},
		1: {Left: 0, Top: 0, Right: 100, Bottom: 100},
	}
	regions := Partition([]int{0, 1}, frames)

	if len(regions) != 1 {
		t.Fatalf("len(regions) = %d, want 1 for fully coincident layers", len(regions))
	}
	if len(regions[0].Layers) != 2 || regions[0].Layers[0] != 0 || regions[0].Layers[1] != 1 {
		t.Errorf("region.Layers = %v, want [0 1] (bottom-to-top order preserved)", regions[0].Layers)
	}
}

func TestPartitionEmptyInput(t *testing.T) {
	if got := Partition(nil, nil); got != nil {
		t.Errorf("Partition(nil, nil) = %v, want nil", got)
	}
}
