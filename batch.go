package lowrank

import (
	"context"
	"image"

	"github.com/yyyoichi/lowrank/internal/compress"
	"github.com/yyyoichi/lowrank/internal/pixel"
	"github.com/yyyoichi/lowrank/internal/quality"
	"github.com/yyyoichi/lowrank/internal/raster"
	"github.com/yyyoichi/lowrank/internal/svd"
	"gonum.org/v1/gonum/mat"
)

// Batch enables reconstructing a single image at many ranks
// by caching the factorization of every channel.
type Batch struct {
	settings
	original *raster.Raster
	mats     []*mat.Dense
	facts    []*svd.Factorization
}

// NewBatch factorizes every channel of src once.
func NewBatch(ctx context.Context, src image.Image, opts ...Option) (*Batch, error) {
	b := &Batch{original: raster.FromImage(src)}
	if err := b.init(opts...); err != nil {
		return nil, err
	}
	r := b.original
	var err error
	b.mats, err = pixel.Extract(r.Pix, r.Width, r.Height, r.Layout.Channels())
	if err != nil {
		return nil, err
	}
	b.facts, err = compress.Factorize(ctx, b.mats, b.workers, b.logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// MaxRank returns min(width, height), the smallest rank that reconstructs without loss.
func (b *Batch) MaxRank() int {
	return min(b.original.Width, b.original.Height)
}

// Pixels returns the interleaved 8-bit approximation at rank.
func (b *Batch) Pixels(ctx context.Context, rank int) ([]byte, error) {
	return compress.Reconstruct(ctx, b.facts, rank, b.workers, b.logger)
}

// Image returns the approximation at rank with the source color type and bit depth.
func (b *Batch) Image(ctx context.Context, rank int) (image.Image, error) {
	pix, err := b.Pixels(ctx, rank)
	if err != nil {
		return nil, err
	}
	return b.original.WithPix(pix).Image(), nil
}

// Report summarizes the approximation at one rank.
type Report struct {
	Rank          int
	EffectiveRank int
	// MSE and PSNR compare the 8-bit samples with the source.
	MSE  float64
	PSNR float64
	// FrobeniusError is ||A - A_r||_F summed over channels, measured before rounding.
	FrobeniusError float64
	// Ratio is the size of the rank-r factors relative to the raw samples.
	Ratio float64
}

// Report reconstructs the image at rank and measures it against the source.
func (b *Batch) Report(ctx context.Context, rank int) (Report, error) {
	approx, err := compress.Truncate(ctx, b.facts, rank, b.workers, b.logger)
	if err != nil {
		return Report{}, err
	}
	pix, err := pixel.Recombine(approx)
	if err != nil {
		return Report{}, err
	}
	rep := Report{
		Rank:          rank,
		EffectiveRank: min(rank, b.MaxRank()),
		Ratio:         quality.Ratio(b.original.Height, b.original.Width, rank),
	}
	for c := range approx {
		rep.FrobeniusError += quality.FrobeniusError(b.mats[c], approx[c])
	}
	if rep.MSE, err = quality.MSE(b.original.Pix, pix); err != nil {
		return Report{}, err
	}
	if rep.PSNR, err = quality.PSNR(b.original.Pix, pix); err != nil {
		return Report{}, err
	}
	return rep, nil
}
