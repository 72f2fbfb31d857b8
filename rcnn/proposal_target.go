package rcnn

import (
	"github.com/cyclopcam/logs"
	"github.com/okieraised/go-frcnn-targets/config"
	"github.com/okieraised/go-frcnn-targets/processing"
	"github.com/okieraised/go-frcnn-targets/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"
	"math"
	"math/rand/v2"
	"sync"
)

// ProposalTarget turns region proposals into the sampled ROIs, class labels
// and box regression targets that the R-CNN head is trained on.
//
// Class 0 is reserved for Background. A non-padding ground truth box labelled
// 0 is rejected.
type ProposalTarget struct {
	*config.ProposalTargetParams
	log logs.Log

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*ProposalTarget)

// WithRand sets the random source used to subsample proposals. Use a seeded
// source to make target construction reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(p *ProposalTarget) {
		p.rng = rng
	}
}

func WithLog(log logs.Log) Option {
	return func(p *ProposalTarget) {
		p.log = log
	}
}

func NewProposalTarget(cfg *config.ProposalTargetParams, opts ...Option) (*ProposalTarget, error) {
	if cfg == nil {
		cfg = config.DefaultProposalTargetParams
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid proposal target params")
	}

	client := &ProposalTarget{
		ProposalTargetParams: cfg,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.rng == nil {
		client.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return client, nil
}

// BuildTargets generates detection targets for a batch of images.
//
// proposals holds one (N, 4) tensor per image in normalized (y1, x1, y2, x2)
// coordinates. gtBoxes is (B, G, 4) in image coordinates, zero-padded, and
// gtClassIDs is the matching (B, G) class tensor. imgMetas is (B, 11) as
// produced by ComposeImageMeta.
//
// One Target is returned per image. Images are independent and may yield
// different numbers of ROIs and positives.
func (p *ProposalTarget) BuildTargets(proposals []*tensor.Dense, gtBoxes, gtClassIDs, imgMetas *tensor.Dense) ([]*Target, error) {
	metas, err := ParseImageMetas(imgMetas)
	if err != nil {
		return nil, err
	}
	imgShapes := CalcImageShapes(metas)

	batchBoxes, err := utils.BoxBatchFromTensor(gtBoxes)
	if err != nil {
		return nil, errors.Wrap(err, "invalid gt boxes")
	}
	batchIDs, err := utils.IntRowsFromTensor(gtClassIDs)
	if err != nil {
		return nil, errors.Wrap(err, "invalid gt class ids")
	}

	batchSize := len(imgShapes)
	if len(proposals) != batchSize || len(batchBoxes) != batchSize || len(batchIDs) != batchSize {
		return nil, errors.Errorf("batch size mismatch: %d proposal sets, %d gt box rows, %d gt class rows, %d image metas",
			len(proposals), len(batchBoxes), len(batchIDs), batchSize)
	}

	batchProposals := make([][]processing.Box, batchSize)
	batchClassIDs := make([][]ClassID, batchSize)
	for i := range batchSize {
		batchProposals[i], err = utils.BoxesFromTensor(proposals[i])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid proposals for image %d", i)
		}
		batchClassIDs[i] = make([]ClassID, len(batchIDs[i]))
		for j, id := range batchIDs[i] {
			batchClassIDs[i][j] = ClassID(id)
		}
	}

	return p.Build(batchProposals, batchBoxes, batchClassIDs, imgShapes)
}

// BuildTargetsList is BuildTargets with the result split into parallel
// lists of rois, target matches and target deltas.
func (p *ProposalTarget) BuildTargetsList(proposals []*tensor.Dense, gtBoxes, gtClassIDs, imgMetas *tensor.Dense) ([]*tensor.Dense, []*tensor.Dense, []*tensor.Dense, error) {
	targets, err := p.BuildTargets(proposals, gtBoxes, gtClassIDs, imgMetas)
	if err != nil {
		return nil, nil, nil, err
	}
	roisList := make([]*tensor.Dense, len(targets))
	matchesList := make([]*tensor.Dense, len(targets))
	deltasList := make([]*tensor.Dense, len(targets))
	for i, t := range targets {
		roisList[i], matchesList[i], deltasList[i] = t.Tensors()
	}
	return roisList, matchesList, deltasList, nil
}

// Build is the slice form of BuildTargets. All outer slices are indexed by
// image.
func (p *ProposalTarget) Build(proposals, gtBoxes [][]processing.Box, gtClassIDs [][]ClassID, imgShapes []ImageShape) ([]*Target, error) {
	batchSize := len(imgShapes)
	if len(proposals) != batchSize || len(gtBoxes) != batchSize || len(gtClassIDs) != batchSize {
		return nil, errors.Errorf("batch size mismatch: %d proposal sets, %d gt box sets, %d gt class sets, %d image shapes",
			len(proposals), len(gtBoxes), len(gtClassIDs), batchSize)
	}

	// Seeds are drawn up front so the result does not depend on how images
	// are scheduled across workers.
	rngs := p.splitRand(batchSize)
	targets := make([]*Target, batchSize)

	var g errgroup.Group
	g.SetLimit(p.NumWorkers)
	for i := range batchSize {
		g.Go(func() error {
			t, err := p.buildSingleTarget(rngs[i], proposals[i], gtBoxes[i], gtClassIDs[i], imgShapes[i])
			if err != nil {
				return errors.Wrapf(err, "image %d", i)
			}
			targets[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return targets, nil
}

func (p *ProposalTarget) splitRand(n int) []*rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()

	rngs := make([]*rand.Rand, n)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewPCG(p.rng.Uint64(), p.rng.Uint64()))
	}
	return rngs
}

func (p *ProposalTarget) buildSingleTarget(rng *rand.Rand, proposals, gtBoxes []processing.Box, gtClassIDs []ClassID, imgShape ImageShape) (*Target, error) {
	if len(gtBoxes) != len(gtClassIDs) {
		return nil, errors.Errorf("%d gt boxes but %d gt class ids", len(gtBoxes), len(gtClassIDs))
	}
	if imgShape.Height <= 0 || imgShape.Width <= 0 {
		return nil, errors.Errorf("invalid image shape %vx%v", imgShape.Height, imgShape.Width)
	}

	gtBoxes, nonZeros := processing.TrimZeros(gtBoxes)
	gtClassIDs, err := utils.SelectMasked(gtClassIDs, nonZeros)
	if err != nil {
		return nil, err
	}
	for i, id := range gtClassIDs {
		if id == Background {
			return nil, errors.Errorf("gt box %v has the background class", gtBoxes[i])
		}
	}
	for i := range gtBoxes {
		gtBoxes[i] = gtBoxes[i].Scale(imgShape.Height, imgShape.Width)
	}
	if len(gtBoxes) == 0 && len(proposals) > 0 {
		p.debugf("No ground truth boxes, dropping all %d proposals", len(proposals))
	}

	overlaps := processing.ComputeOverlaps(proposals, gtBoxes)

	positiveIndices := make([]int, 0)
	negativeIndices := make([]int, 0)
	for i, row := range overlaps {
		_, roiIoUMax := processing.ArgMax(row)
		if len(row) > 0 && roiIoUMax >= p.PosIOUThreshold {
			positiveIndices = append(positiveIndices, i)
		} else if roiIoUMax < p.NegIOUThreshold {
			negativeIndices = append(negativeIndices, i)
		}
	}

	positiveIndices = shuffleHead(rng, positiveIndices, p.MaxPositives())
	positiveCount := len(positiveIndices)

	// Add enough negatives to keep the positive:negative ratio.
	// positiveCount <= NumRCNNDeltas*ROIPositiveFraction bounds the total by
	// NumRCNNDeltas.
	negativeCount := int(math.Round(float64(positiveCount)/float64(p.ROIPositiveFraction))) - positiveCount
	negativeIndices = shuffleHead(rng, negativeIndices, negativeCount)

	positiveROIs, err := utils.SelectRows(proposals, positiveIndices)
	if err != nil {
		return nil, err
	}
	negativeROIs, err := utils.SelectRows(proposals, negativeIndices)
	if err != nil {
		return nil, err
	}

	// Assign positive ROIs to their best matching gt box.
	roiGTBoxes := make([]processing.Box, positiveCount)
	matches := make([]ClassID, 0, positiveCount+len(negativeROIs))
	for k, idx := range positiveIndices {
		assignment, _ := processing.ArgMax(overlaps[idx])
		roiGTBoxes[k] = gtBoxes[assignment]
		matches = append(matches, gtClassIDs[assignment])
	}
	for range negativeROIs {
		matches = append(matches, Background)
	}

	return &Target{
		ROIs:    append(positiveROIs, negativeROIs...),
		Matches: matches,
		Deltas:  processing.BBox2Delta(positiveROIs, roiGTBoxes, p.TargetMeans, p.TargetStds),
	}, nil
}

// shuffleHead shuffles indices in place and keeps at most n of them.
func shuffleHead(rng *rand.Rand, indices []int, n int) []int {
	rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	if len(indices) > n {
		indices = indices[:n]
	}
	return indices
}

func (p *ProposalTarget) debugf(format string, args ...any) {
	if p.log != nil {
		p.log.Debugf(format, args...)
	}
}
