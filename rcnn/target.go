package rcnn

import (
	"fmt"
	"github.com/okieraised/go-frcnn-targets/processing"
	"github.com/okieraised/go-frcnn-targets/utils"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ClassID is a dataset class index. Background marks ROIs that were not
// matched to any ground-truth object.
type ClassID int

const Background ClassID = 0

// Target holds the sampled ROIs of one image and their training targets.
// Positive ROIs come first; Deltas has one row per positive and is aligned
// with that prefix of ROIs. Matches has one entry per ROI and is Background
// for every negative.
type Target struct {
	ROIs    []processing.Box
	Matches []ClassID
	Deltas  [][4]float32
}

func (t *Target) NumPositive() int {
	return len(t.Deltas)
}

func (t *Target) NumNegative() int {
	return len(t.ROIs) - len(t.Deltas)
}

func (t *Target) Len() int {
	return len(t.ROIs)
}

// PositiveROIs returns the prefix of ROIs that Deltas refers to.
func (t *Target) PositiveROIs() []processing.Box {
	return t.ROIs[:len(t.Deltas)]
}

// Validate checks the layout invariants of the target.
func (t *Target) Validate() error {
	if len(t.Matches) != len(t.ROIs) {
		return errors.Errorf("target has %d matches for %d rois", len(t.Matches), len(t.ROIs))
	}
	if len(t.Deltas) > len(t.ROIs) {
		return errors.Errorf("target has %d deltas for %d rois", len(t.Deltas), len(t.ROIs))
	}
	for i, m := range t.Matches {
		if i < len(t.Deltas) && m == Background {
			return errors.Errorf("positive roi %d is labelled as background", i)
		}
		if i >= len(t.Deltas) && m != Background {
			return errors.Errorf("negative roi %d has class %d", i, m)
		}
	}
	return nil
}

func (t *Target) String() string {
	return fmt.Sprintf("Target(%d rois: %d positive, %d negative)", t.Len(), t.NumPositive(), t.NumNegative())
}

// Tensors returns the target as rois (N, 4) float32, matches (N) int and
// deltas (P, 4) float32.
func (t *Target) Tensors() (rois, matches, deltas *tensor.Dense) {
	return utils.BoxesToTensor(t.ROIs), utils.IntsToTensor(t.classIDs()), utils.DeltasToTensor(t.Deltas)
}

func (t *Target) classIDs() []int {
	ids := make([]int, len(t.Matches))
	for i, m := range t.Matches {
		ids[i] = int(m)
	}
	return ids
}

// Nodes adds the matches and deltas to g as input nodes carrying their
// values. They are not learnables, so gradients never flow through them.
// name must be unique within g. A nil node is returned for an empty part.
func (t *Target) Nodes(g *gorgonia.ExprGraph, name string) (matches, deltas *gorgonia.Node) {
	if len(t.Matches) > 0 {
		matches = gorgonia.NewVector(g, tensor.Int,
			gorgonia.WithShape(len(t.Matches)),
			gorgonia.WithName(name+"_target_matches"),
			gorgonia.WithValue(utils.IntsToTensor(t.classIDs())),
		)
	}
	if len(t.Deltas) > 0 {
		deltas = gorgonia.NewMatrix(g, tensor.Float32,
			gorgonia.WithShape(len(t.Deltas), 4),
			gorgonia.WithName(name+"_target_deltas"),
			gorgonia.WithValue(utils.DeltasToTensor(t.Deltas)),
		)
	}
	return matches, deltas
}
