package lowrank

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"github.com/yyyoichi/lowrank/internal/compress"
	"github.com/yyyoichi/lowrank/internal/pixel"
	"github.com/yyyoichi/lowrank/internal/raster"
	"github.com/yyyoichi/lowrank/internal/svd"
)

var (
	// ErrMalformedBuffer reports a pixel buffer whose length does not match its dimensions.
	ErrMalformedBuffer = pixel.ErrMalformedBuffer
	// ErrFactorization reports a channel that could not be decomposed.
	ErrFactorization = svd.ErrFactorization
	// ErrInvalidRank reports a rank below 1.
	ErrInvalidRank = svd.ErrInvalidRank
)

// Compress approximates every channel of src by its top rank singular triplets.
// This is a convenience function that creates a Compressor and calls its Compress method.
func Compress(ctx context.Context, src image.Image, rank int, opts ...Option) (image.Image, error) {
	c, err := New(rank, opts...)
	if err != nil {
		return nil, err
	}
	return c.Compress(ctx, src)
}

type Compressor struct {
	rank int
	settings
}

// New initializes a compressor that keeps rank singular triplets per channel.
// A rank of min(width, height) or more reconstructs the image without loss.
// It returns ErrInvalidRank when rank is below 1.
func New(rank int, opts ...Option) (*Compressor, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRank, rank)
	}
	c := &Compressor{rank: rank}
	if err := c.init(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// Rank returns the requested rank.
func (c *Compressor) Rank() int {
	return c.rank
}

// Compress returns the low-rank approximation of src.
//
// Process:
//  1. Converts the image to an interleaved 8-bit buffer (1, 3 or 4 channels).
//  2. Builds one matrix per channel.
//  3. Factorizes and truncates each channel concurrently.
//  4. Rounds and clamps the approximation back to 8-bit samples.
//  5. Rebuilds an image with the source color type and bit depth.
func (c *Compressor) Compress(ctx context.Context, src image.Image) (image.Image, error) {
	r := raster.FromImage(src)
	c.logger.WithFields(logrus.Fields{
		"color": r.Layout.Color,
		"depth": r.Layout.Depth,
	}).Debug("decoded raster")
	pix, err := c.CompressPixels(ctx, r.Pix, r.Width, r.Height, r.Layout.Channels())
	if err != nil {
		return nil, err
	}
	return r.WithPix(pix).Image(), nil
}

// CompressPixels compresses an interleaved 8-bit buffer of width x height pixels
// with channels samples each. The result has the same length and layout.
func (c *Compressor) CompressPixels(ctx context.Context, pix []byte, width, height, channels int) ([]byte, error) {
	return compress.Run(ctx, pix, width, height, channels, c.rank, c.workers, c.logger)
}
