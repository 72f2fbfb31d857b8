package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultProposalTargetParams(t *testing.T) {
	assert.NoError(t, DefaultProposalTargetParams.Validate())
	assert.Equal(t, 128, DefaultProposalTargetParams.MaxPositives())
	assert.Equal(t, [4]float32{0.1, 0.1, 0.2, 0.2}, DefaultProposalTargetParams.TargetStds)
}

func TestNewProposalTargetParams(t *testing.T) {
	p := NewProposalTargetParams([4]float32{}, [4]float32{1, 1, 1, 1}, 64, 0.5, 0.7, 0.3, 2)
	assert.NoError(t, p.Validate())
	assert.Equal(t, 64, p.NumRCNNDeltas)
	assert.Equal(t, 32, p.MaxPositives())
}

func TestProposalTargetParams_Validate(t *testing.T) {
	cases := map[string]func(p *ProposalTargetParams){
		"zero rois":          func(p *ProposalTargetParams) { p.NumRCNNDeltas = 0 },
		"zero fraction":      func(p *ProposalTargetParams) { p.ROIPositiveFraction = 0 },
		"fraction above one": func(p *ProposalTargetParams) { p.ROIPositiveFraction = 1.5 },
		"pos above one":      func(p *ProposalTargetParams) { p.PosIOUThreshold = 1.2 },
		"negative neg":       func(p *ProposalTargetParams) { p.NegIOUThreshold = -0.1 },
		"neg above pos":      func(p *ProposalTargetParams) { p.NegIOUThreshold = 0.6 },
		"zero std":           func(p *ProposalTargetParams) { p.TargetStds[2] = 0 },
		"no workers":         func(p *ProposalTargetParams) { p.NumWorkers = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := *DefaultProposalTargetParams
			mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestParseProposalTargetParams(t *testing.T) {
	p, err := ParseProposalTargetParams([]byte(`
num_rcnn_deltas: 256
pos_iou_thr: 0.6
neg_iou_thr: 0.4
target_stds: [0.1, 0.1, 0.25, 0.25]
num_workers: 4
`))
	require.NoError(t, err)
	assert.Equal(t, 256, p.NumRCNNDeltas)
	assert.Equal(t, float32(0.6), p.PosIOUThreshold)
	assert.Equal(t, float32(0.4), p.NegIOUThreshold)
	assert.Equal(t, [4]float32{0.1, 0.1, 0.25, 0.25}, p.TargetStds)
	assert.Equal(t, 4, p.NumWorkers)

	// Absent fields keep their defaults.
	assert.Equal(t, float32(0.25), p.ROIPositiveFraction)
	assert.Equal(t, [4]float32{}, p.TargetMeans)

	// Defaults are not modified by parsing.
	assert.Equal(t, 512, DefaultProposalTargetParams.NumRCNNDeltas)

	_, err = ParseProposalTargetParams([]byte("pos_iou_thr: 0.3\nneg_iou_thr: 0.5\n"))
	assert.Error(t, err)

	_, err = ParseProposalTargetParams([]byte("num_rcnn_deltas: [1, 2]"))
	assert.Error(t, err)
}

func TestLoadProposalTargetParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roi_positive_fraction: 0.5\n"), 0o644))

	p, err := LoadProposalTargetParams(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), p.ROIPositiveFraction)
	assert.Equal(t, 256, p.MaxPositives())

	_, err = LoadProposalTargetParams(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
