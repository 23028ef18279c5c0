package compress

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yyyoichi/lowrank/internal/pixel"
	"github.com/yyyoichi/lowrank/internal/svd"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Run compresses an interleaved 8-bit buffer by keeping the top rank singular
// triplets of every channel. The returned buffer has the same length and layout.
//
// Process:
//  1. Rejects a non-positive rank before doing any work.
//  2. Extracts one height x width matrix per channel.
//  3. Factorizes each channel in its own goroutine.
//  4. Truncates each factorization to rank.
//  5. Recombines the channels into clamped 8-bit samples.
//
// A failure on any channel cancels the others and fails the whole call.
// workers caps the number of channels processed at once; 0 means no cap.
func Run(ctx context.Context, buf []byte, width, height, channels, rank, workers int, logger logrus.FieldLogger) ([]byte, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("%w: got %d", svd.ErrInvalidRank, rank)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.WithFields(logrus.Fields{
		"width":    width,
		"height":   height,
		"channels": channels,
		"rank":     rank,
	})
	begin := time.Now()

	start := time.Now()
	mats, err := pixel.Extract(buf, width, height, channels)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"stage": "extract", "took": time.Since(start)}).Debug("extracted channel matrices")

	facts, err := Factorize(ctx, mats, workers, log)
	if err != nil {
		return nil, err
	}
	out, err := Reconstruct(ctx, facts, rank, workers, log)
	if err != nil {
		return nil, err
	}
	log.WithField("took", time.Since(begin)).Info("compressed image")
	return out, nil
}

// Factorize computes the SVD of every channel matrix concurrently.
func Factorize(ctx context.Context, mats []*mat.Dense, workers int, logger logrus.FieldLogger) ([]*svd.Factorization, error) {
	facts := make([]*svd.Factorization, len(mats))
	err := eachChannel(ctx, len(mats), workers, func(c int) error {
		start := time.Now()
		f, err := svd.Factorize(mats[c])
		if err != nil {
			return err
		}
		facts[c] = f
		logger.WithFields(logrus.Fields{
			"stage":   "factorize",
			"channel": c,
			"took":    time.Since(start),
		}).Debug("factorized channel")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return facts, nil
}

// Truncate builds the rank approximation of every channel concurrently.
// The matrices hold unrounded values.
func Truncate(ctx context.Context, facts []*svd.Factorization, rank, workers int, logger logrus.FieldLogger) ([]mat.Matrix, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("%w: got %d", svd.ErrInvalidRank, rank)
	}
	approx := make([]mat.Matrix, len(facts))
	err := eachChannel(ctx, len(facts), workers, func(c int) error {
		start := time.Now()
		a, err := facts[c].Truncate(rank)
		if err != nil {
			return err
		}
		approx[c] = a
		logger.WithFields(logrus.Fields{
			"stage":          "truncate",
			"channel":        c,
			"effective_rank": facts[c].EffectiveRank(rank),
			"took":           time.Since(start),
		}).Debug("truncated channel")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approx, nil
}

// Reconstruct truncates every factorization to rank and recombines the result.
func Reconstruct(ctx context.Context, facts []*svd.Factorization, rank, workers int, logger logrus.FieldLogger) ([]byte, error) {
	approx, err := Truncate(ctx, facts, rank, workers, logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := pixel.Recombine(approx)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"stage": "recombine", "took": time.Since(start)}).Debug("recombined channels")
	return out, nil
}

// eachChannel runs fn for channels 0..n-1 in a group of at most workers goroutines
// (0 means no cap). The first error cancels the channels that have not started.
func eachChannel(ctx context.Context, n, workers int, fn func(c int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for c := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(c); err != nil {
				return fmt.Errorf("channel %d: %w", c, err)
			}
			return nil
		})
	}
	return g.Wait()
}
