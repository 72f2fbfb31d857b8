package rcnn

import (
	"github.com/okieraised/go-frcnn-targets/utils"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ImageMetaSize is the length of a composed image meta vector:
// original shape (3), image shape (3), padded shape (3), scale, flip.
const ImageMetaSize = 11

// ImageMeta describes how a loader transformed one image before batching.
// Shapes are (height, width, channels).
type ImageMeta struct {
	OriginalShape [3]float32
	ImageShape    [3]float32
	PadShape      [3]float32
	Scale         float32
	Flip          bool
}

// ImageShape is the (height, width) of the resized image that ground-truth
// boxes are expressed in.
type ImageShape struct {
	Height float32
	Width  float32
}

func ComposeImageMeta(meta ImageMeta) []float32 {
	out := make([]float32, 0, ImageMetaSize)
	out = append(out, meta.OriginalShape[:]...)
	out = append(out, meta.ImageShape[:]...)
	out = append(out, meta.PadShape[:]...)
	out = append(out, meta.Scale)
	if meta.Flip {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out
}

func ParseImageMeta(vec []float32) (ImageMeta, error) {
	var meta ImageMeta
	if len(vec) < ImageMetaSize {
		return meta, errors.Errorf("image meta has %d values, expected %d", len(vec), ImageMetaSize)
	}
	copy(meta.OriginalShape[:], vec[0:3])
	copy(meta.ImageShape[:], vec[3:6])
	copy(meta.PadShape[:], vec[6:9])
	meta.Scale = vec[9]
	meta.Flip = vec[10] != 0
	return meta, nil
}

// ParseImageMetas reads a (B, 11) meta tensor.
func ParseImageMetas(imgMetas *tensor.Dense) ([]ImageMeta, error) {
	rows, err := utils.Float32RowsFromTensor(imgMetas)
	if err != nil {
		return nil, errors.Wrap(err, "invalid image metas")
	}
	metas := make([]ImageMeta, len(rows))
	for i, row := range rows {
		metas[i], err = ParseImageMeta(row)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
	}
	return metas, nil
}

// CalcImageShapes returns the resized (height, width) of every image.
func CalcImageShapes(metas []ImageMeta) []ImageShape {
	shapes := make([]ImageShape, len(metas))
	for i, m := range metas {
		shapes[i] = ImageShape{Height: m.ImageShape[0], Width: m.ImageShape[1]}
	}
	return shapes
}

// CalcPadShapes returns the padded (height, width) of every image.
func CalcPadShapes(metas []ImageMeta) []ImageShape {
	shapes := make([]ImageShape, len(metas))
	for i, m := range metas {
		shapes[i] = ImageShape{Height: m.PadShape[0], Width: m.PadShape[1]}
	}
	return shapes
}
