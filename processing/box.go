package processing

import (
	"fmt"
)

// Box is an axis-aligned box in (y1, x1, y2, x2) order. Depending on the
// caller it holds normalized [0,1] or pixel coordinates.
type Box [4]float32

func (b Box) Y1() float32 { return b[0] }
func (b Box) X1() float32 { return b[1] }
func (b Box) Y2() float32 { return b[2] }
func (b Box) X2() float32 { return b[3] }

func (b Box) Height() float32 {
	return b[2] - b[0]
}

func (b Box) Width() float32 {
	return b[3] - b[1]
}

// Area is zero for inverted or degenerate boxes.
func (b Box) Area() float32 {
	h, w := b.Height(), b.Width()
	if h <= 0 || w <= 0 {
		return 0
	}
	return h * w
}

// Center returns the (y, x) center of the box.
func (b Box) Center() (float32, float32) {
	return b[0] + 0.5*b.Height(), b[1] + 0.5*b.Width()
}

// IsZero reports whether every coordinate is zero, which is how padded
// ground-truth rows are encoded.
func (b Box) IsZero() bool {
	return b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 0
}

// Scale divides the box by (h, w, h, w).
func (b Box) Scale(h, w float32) Box {
	return Box{b[0] / h, b[1] / w, b[2] / h, b[3] / w}
}

func (b Box) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f, %.4f)", b[0], b[1], b[2], b[3])
}

// TrimZeros removes all-zero rows from boxes. The returned mask has one
// entry per input row and is true for rows that were kept, so the same
// selection can be applied to parallel data such as class IDs.
func TrimZeros(boxes []Box) ([]Box, []bool) {
	kept := make([]Box, 0, len(boxes))
	mask := make([]bool, len(boxes))
	for i, b := range boxes {
		if b.IsZero() {
			continue
		}
		mask[i] = true
		kept = append(kept, b)
	}
	return kept, mask
}
