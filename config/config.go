package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"os"
)

type ProposalTargetParams struct {
	TargetMeans         [4]float32 `json:"target_means" yaml:"target_means"`
	TargetStds          [4]float32 `json:"target_stds" yaml:"target_stds"`
	NumRCNNDeltas       int        `json:"num_rcnn_deltas" yaml:"num_rcnn_deltas"`
	ROIPositiveFraction float32    `json:"roi_positive_fraction" yaml:"roi_positive_fraction"`
	PosIOUThreshold     float32    `json:"pos_iou_thr" yaml:"pos_iou_thr"`
	NegIOUThreshold     float32    `json:"neg_iou_thr" yaml:"neg_iou_thr"`
	NumWorkers          int        `json:"num_workers" yaml:"num_workers"`
}

var DefaultProposalTargetParams = &ProposalTargetParams{
	TargetMeans:         [4]float32{0, 0, 0, 0},
	TargetStds:          [4]float32{0.1, 0.1, 0.2, 0.2},
	NumRCNNDeltas:       512,
	ROIPositiveFraction: 0.25,
	PosIOUThreshold:     0.5,
	NegIOUThreshold:     0.5,
	NumWorkers:          1,
}

func NewProposalTargetParams(targetMeans, targetStds [4]float32, numRCNNDeltas int, roiPositiveFraction, posIOUThreshold, negIOUThreshold float32, numWorkers int) *ProposalTargetParams {
	return &ProposalTargetParams{
		TargetMeans:         targetMeans,
		TargetStds:          targetStds,
		NumRCNNDeltas:       numRCNNDeltas,
		ROIPositiveFraction: roiPositiveFraction,
		PosIOUThreshold:     posIOUThreshold,
		NegIOUThreshold:     negIOUThreshold,
		NumWorkers:          numWorkers,
	}
}

// MaxPositives is the most positive ROIs that are kept per image.
func (p *ProposalTargetParams) MaxPositives() int {
	return int(float32(p.NumRCNNDeltas) * p.ROIPositiveFraction)
}

func (p *ProposalTargetParams) Validate() error {
	if p.NumRCNNDeltas <= 0 {
		return errors.Errorf("num_rcnn_deltas must be positive, got %d", p.NumRCNNDeltas)
	}
	if p.ROIPositiveFraction <= 0 || p.ROIPositiveFraction > 1 {
		return errors.Errorf("roi_positive_fraction must be in (0, 1], got %v", p.ROIPositiveFraction)
	}
	if p.PosIOUThreshold < 0 || p.PosIOUThreshold > 1 {
		return errors.Errorf("pos_iou_thr must be in [0, 1], got %v", p.PosIOUThreshold)
	}
	if p.NegIOUThreshold < 0 || p.NegIOUThreshold > 1 {
		return errors.Errorf("neg_iou_thr must be in [0, 1], got %v", p.NegIOUThreshold)
	}
	// A proposal must never qualify as both positive and negative.
	if p.NegIOUThreshold > p.PosIOUThreshold {
		return errors.Errorf("neg_iou_thr (%v) must not exceed pos_iou_thr (%v)", p.NegIOUThreshold, p.PosIOUThreshold)
	}
	for i, s := range p.TargetStds {
		if s <= 0 {
			return errors.Errorf("target_stds[%d] must be positive, got %v", i, s)
		}
	}
	if p.NumWorkers < 1 {
		return errors.Errorf("num_workers must be at least 1, got %d", p.NumWorkers)
	}
	return nil
}

// ParseProposalTargetParams decodes YAML on top of the defaults. Fields that
// are absent keep their default value.
func ParseProposalTargetParams(data []byte) (*ProposalTargetParams, error) {
	params := *DefaultProposalTargetParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, errors.Wrap(err, "failed to decode proposal target params")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

func LoadProposalTargetParams(path string) (*ProposalTargetParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return ParseProposalTargetParams(data)
}
