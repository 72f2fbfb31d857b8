package processing

import (
	"github.com/chewxy/math32"
)

// ClipBoxes clamps every box into window. y coordinates are clamped to
// [window.Y1, window.Y2] and x coordinates to [window.X1, window.X2].
func ClipBoxes(boxes []Box, window Box) []Box {
	clipped := make([]Box, len(boxes))
	for i, b := range boxes {
		clipped[i] = Box{
			math32.Max(math32.Min(b[0], window[2]), window[0]),
			math32.Max(math32.Min(b[1], window[3]), window[1]),
			math32.Max(math32.Min(b[2], window[2]), window[0]),
			math32.Max(math32.Min(b[3], window[3]), window[1]),
		}
	}
	return clipped
}

// BBox2Delta computes the regression target that moves each src box onto the
// dst box with the same index, as (dy, dx, log(dh), log(dw)) standardized by
// means and stds.
//
// src boxes must have positive height and width; degenerate boxes produce
// infinite or NaN deltas.
func BBox2Delta(src, dst []Box, means, stds [4]float32) [][4]float32 {
	deltas := make([][4]float32, len(src))
	for i := range src {
		h, w := src[i].Height(), src[i].Width()
		cy, cx := src[i].Center()

		gh, gw := dst[i].Height(), dst[i].Width()
		gcy, gcx := dst[i].Center()

		d := [4]float32{
			(gcy - cy) / h,
			(gcx - cx) / w,
			math32.Log(gh / h),
			math32.Log(gw / w),
		}
		for k := range 4 {
			d[k] = (d[k] - means[k]) / stds[k]
		}
		deltas[i] = d
	}
	return deltas
}

// Delta2BBox applies deltas produced by BBox2Delta (with the same means and
// stds) to rois and returns the refined boxes.
func Delta2BBox(rois []Box, deltas [][4]float32, means, stds [4]float32) []Box {
	boxes := make([]Box, len(rois))
	for i := range rois {
		var d [4]float32
		for k := range 4 {
			d[k] = deltas[i][k]*stds[k] + means[k]
		}

		h, w := rois[i].Height(), rois[i].Width()
		cy, cx := rois[i].Center()

		cy += d[0] * h
		cx += d[1] * w
		h *= math32.Exp(d[2])
		w *= math32.Exp(d[3])

		boxes[i] = Box{cy - 0.5*h, cx - 0.5*w, cy + 0.5*h, cx + 0.5*w}
	}
	return boxes
}
