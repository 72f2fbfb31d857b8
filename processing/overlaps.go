package processing

import (
	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
)

// IoU returns the intersection over union of a and b. Boxes that do not
// overlap, or that have no area, have an IoU of zero.
func IoU(a, b Box) float32 {
	ih := math32.Min(a[2], b[2]) - math32.Max(a[0], b[0])
	iw := math32.Min(a[3], b[3]) - math32.Max(a[1], b[1])
	if ih <= 0 || iw <= 0 {
		return 0
	}
	inter := ih * iw
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// ComputeOverlaps returns the IoU matrix between boxesA and boxesB, with
// one row per box in boxesA and one column per box in boxesB.
//
// boxesB is loaded into a spatial index, so only the pairs that actually
// touch are evaluated and the rest stay zero.
func ComputeOverlaps(boxesA, boxesB []Box) [][]float32 {
	overlaps := make([][]float32, len(boxesA))
	backing := make([]float32, len(boxesA)*len(boxesB))
	for i := range overlaps {
		overlaps[i] = backing[i*len(boxesB) : (i+1)*len(boxesB)]
	}
	if len(boxesA) == 0 || len(boxesB) == 0 {
		return overlaps
	}

	fb := flatbush.NewFlatbush[float64]()
	fb.Reserve(len(boxesB))
	for _, b := range boxesB {
		fb.Add(float64(b[1]), float64(b[0]), float64(b[3]), float64(b[2]))
	}
	fb.Finish()

	// nearby is recycled between rows
	nearby := []int{}
	for i, a := range boxesA {
		nearby = fb.SearchFast(float64(a[1]), float64(a[0]), float64(a[3]), float64(a[2]), nearby)
		for _, j := range nearby {
			overlaps[i][j] = IoU(a, boxesB[j])
		}
	}
	return overlaps
}

// ArgMax returns the index and value of the largest element of row. Ties go
// to the lowest index. An empty row returns (-1, 0).
func ArgMax(row []float32) (int, float32) {
	best := -1
	var bestVal float32
	for j, v := range row {
		if best == -1 || v > bestVal {
			best = j
			bestVal = v
		}
	}
	return best, bestVal
}
