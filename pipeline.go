package go_frcnn_targets

import (
	"github.com/cyclopcam/logs"
	"github.com/okieraised/go-frcnn-targets/config"
	"github.com/okieraised/go-frcnn-targets/rcnn"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"sync"
)

type PipelineStats struct {
	Batches     int `json:"batches"`
	Images      int `json:"images"`
	EmptyImages int `json:"empty_images"`
	Positives   int `json:"positives"`
	Negatives   int `json:"negatives"`

	// Raw delta statistics of the most recent batch with at least one
	// positive ROI.
	DeltaMeans [4]float32 `json:"delta_means"`
	DeltaStds  [4]float32 `json:"delta_stds"`
}

type TargetPipeline struct {
	log            logs.Log
	params         *config.ProposalTargetParams
	proposalTarget *rcnn.ProposalTarget

	mu    sync.Mutex
	stats PipelineStats
}

// NewTargetPipeline initializes a training target pipeline. A nil cfg uses
// config.DefaultProposalTargetParams.
func NewTargetPipeline(log logs.Log, cfg *config.ProposalTargetParams, opts ...rcnn.Option) (*TargetPipeline, error) {
	if cfg == nil {
		cfg = config.DefaultProposalTargetParams
	}
	client := &TargetPipeline{
		log:    log,
		params: cfg,
	}

	if log != nil {
		opts = append([]rcnn.Option{rcnn.WithLog(log)}, opts...)
	}
	proposalTarget, err := rcnn.NewProposalTarget(cfg, opts...)
	if err != nil {
		return nil, err
	}
	client.proposalTarget = proposalTarget

	return client, nil
}

func (c *TargetPipeline) Build(proposals []*tensor.Dense, gtBoxes, gtClassIDs, imgMetas *tensor.Dense) ([]*rcnn.Target, error) {
	targets, err := c.proposalTarget.BuildTargets(proposals, gtBoxes, gtClassIDs, imgMetas)
	if err != nil {
		return nil, err
	}

	positives, negatives, empty := 0, 0, 0
	for i, t := range targets {
		if err := t.Validate(); err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		positives += t.NumPositive()
		negatives += t.NumNegative()
		if t.Len() == 0 {
			empty++
		}
	}
	means, stds, n := rcnn.DeltaStatistics(targets, c.params.TargetMeans, c.params.TargetStds)

	c.mu.Lock()
	c.stats.Batches++
	c.stats.Images += len(targets)
	c.stats.EmptyImages += empty
	c.stats.Positives += positives
	c.stats.Negatives += negatives
	if n > 0 {
		c.stats.DeltaMeans = means
		c.stats.DeltaStds = stds
	}
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debugf("Built targets for %d images: %d positive, %d negative ROIs", len(targets), positives, negatives)
		if positives == 0 && len(targets) > 0 {
			c.log.Warnf("No positive ROIs in batch of %d images", len(targets))
		}
	}

	return targets, nil
}

func (c *TargetPipeline) Stats() PipelineStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
