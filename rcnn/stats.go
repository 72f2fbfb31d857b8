package rcnn

import (
	"gonum.org/v1/gonum/stat"
)

// DeltaStatistics returns the per-component mean and standard deviation of
// the raw (dy, dx, log(dh), log(dw)) regression targets across targets,
// together with the number of positive ROIs they were computed from.
// means and stds must be the values the targets were standardized with.
//
// These are the statistics TargetMeans and TargetStds are chosen from. With
// fewer than two positives the deviations are left at zero.
func DeltaStatistics(targets []*Target, means, stds [4]float32) ([4]float32, [4]float32, int) {
	var rawMeans, rawStds [4]float32

	var columns [4][]float64
	for _, t := range targets {
		for _, d := range t.Deltas {
			for k := range 4 {
				columns[k] = append(columns[k], float64(d[k]*stds[k]+means[k]))
			}
		}
	}

	n := len(columns[0])
	if n == 0 {
		return rawMeans, rawStds, 0
	}
	for k := range 4 {
		if n < 2 {
			rawMeans[k] = float32(stat.Mean(columns[k], nil))
			continue
		}
		m, s := stat.MeanStdDev(columns[k], nil)
		rawMeans[k], rawStds[k] = float32(m), float32(s)
	}
	return rawMeans, rawStds, n
}
