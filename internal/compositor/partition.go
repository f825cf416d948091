// Package compositor implements the GPU composition path (spec.md §4.5):
// partitioning the layers assigned to a render plane-state into a minimal
// set of non-overlapping regions, selecting a shader per region by
// texture count, and drawing each region into a ping-ponged surface.
//
// The region-partitioning algorithm itself has no direct equivalent in
// this codebase's teacher; its tile/grid vocabulary (Region, boundary
// sweep, cell merge) is grounded on hal/software/raster's TileGrid.
package compositor

import (
	"sort"

	"github.com/gogpu/hwc/types"
)

// Region is one non-overlapping rectangle of the partitioned frame,
// tagged with the layer indices that cover it, ordered bottom-to-top.
type Region struct {
	Rect   types.Rect
	Layers []int
}

// Partition computes the minimal set of non-overlapping rectangles that
// tile the union of frames[idx] for idx in layers, each tagged with the
// (bottom-to-top ordered) subset of layers whose frame covers it.
//
// It collects every distinct x/y boundary across the input frames, forms
// the implied grid of cells, assigns each cell the layer set covering its
// center by a point-in-rect test, then coalesces horizontally and
// vertically adjacent cells that share an identical layer set.
func Partition(layers []int, frames map[int]types.Rect) []Region {
	if len(layers) == 0 {
		return nil
	}

	xs, ys := boundaries(layers, frames)
	if len(xs) < 2 || len(ys) < 2 {
		return nil
	}

	cols := len(xs) - 1
	rows := len(ys) - 1
	cellLayers := make([][]int, rows*cols)

	for row := 0; row < rows; row++ {
		cy := (ys[row] + ys[row+1]) / 2
		for col := 0; col < cols; col++ {
			cx := (xs[col] + xs[col+1]) / 2
			var set []int
			for _, idx := range layers {
				if frames[idx].Contains(cx, cy) {
					set = append(set, idx)
				}
			}
			cellLayers[row*cols+col] = set
		}
	}

	return coalesce(xs, ys, cols, rows, cellLayers)
}

// boundaries returns the sorted, deduplicated set of x and y coordinates
// spanned by the frames of the given layer indices.
func boundaries(layers []int, frames map[int]types.Rect) ([]int, []int) {
	xSet := make(map[int]struct{})
	ySet := make(map[int]struct{})
	for _, idx := range layers {
		r := frames[idx]
		xSet[r.Left] = struct{}{}
		xSet[r.Right] = struct{}{}
		ySet[r.Top] = struct{}{}
		ySet[r.Bottom] = struct{}{}
	}
	return sortedKeys(xSet), sortedKeys(ySet)
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// sameLayerSet reports whether a and b name the same layers in the same
// order (region layer sets are already bottom-to-top ordered by
// construction, so ordering must match for two cells to merge).
func sameLayerSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// coalesce merges grid cells sharing an identical layer set, first along
// rows (horizontally adjacent cells), then merging the resulting
// row-spans vertically where a full-width run shares the same set.
func coalesce(xs, ys []int, cols, rows int, cellLayers [][]int) []Region {
	type span struct {
		colStart, colEnd int // [colStart, colEnd)
		layers           []int
	}

	rowSpans := make([][]span, rows)
	for row := 0; row < rows; row++ {
		var spans []span
		col := 0
		for col < cols {
			set := cellLayers[row*cols+col]
			if len(set) == 0 {
				col++
				continue
			}
			end := col + 1
			for end < cols && sameLayerSet(cellLayers[row*cols+end], set) {
				end++
			}
			spans = append(spans, span{colStart: col, colEnd: end, layers: set})
			col = end
		}
		rowSpans[row] = spans
	}

	used := make([][]bool, rows)
	for r := range used {
		used[r] = make([]bool, len(rowSpans[r]))
	}

	var regions []Region
	for row := 0; row < rows; row++ {
		for si, sp := range rowSpans[row] {
			if used[row][si] {
				continue
			}
			used[row][si] = true
			rowEnd := row + 1
			for rowEnd < rows {
				matched := -1
				for oi, osp := range rowSpans[rowEnd] {
					if !used[rowEnd][oi] && osp.colStart == sp.colStart && osp.colEnd == sp.colEnd && sameLayerSet(osp.layers, sp.layers) {
						matched = oi
						break
					}
				}
				if matched < 0 {
					break
				}
				used[rowEnd][matched] = true
				rowEnd++
			}

			regions = append(regions, Region{
				Rect: types.Rect{
					Left:   xs[sp.colStart],
					Top:    ys[row],
					Right:  xs[sp.colEnd],
					Bottom: ys[rowEnd],
				},
				Layers: sp.layers,
			})
		}
	}
	return regions
}
