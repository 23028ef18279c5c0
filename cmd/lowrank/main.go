package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"github.com/yyyoichi/lowrank"
	"github.com/yyyoichi/lowrank/internal/raster"
)

type options struct {
	Rank        int    `short:"r" long:"rank" required:"true" description:"number of singular values kept per channel"`
	Output      string `short:"o" long:"output" default:"out.png" description:"output file"`
	Format      string `long:"format" choice:"png" choice:"jpeg" choice:"gif" choice:"bmp" choice:"tiff" description:"output format (default: from the output extension)"`
	JPEGQuality int    `long:"jpeg-quality" default:"95" description:"JPEG quality, 1-100"`
	Workers     int    `short:"j" long:"workers" default:"0" description:"channels factorized at once (0: all)"`
	Sweep       []int  `long:"sweep" description:"also report MSE/PSNR at this rank (repeatable)"`
	Verbose     bool   `short:"v" long:"verbose" description:"log every stage"`

	Args struct {
		Input string `positional-arg-name:"INPUT" required:"yes"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger(os.Stderr, opts.Verbose)
	if err := run(ctx, opts, logger, os.Stdout); err != nil {
		logger.WithError(err).Error("compression failed")
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

func run(ctx context.Context, opts options, logger logrus.FieldLogger, stdout io.Writer) error {
	format, err := outputFormat(opts)
	if err != nil {
		return err
	}

	c, err := lowrank.New(opts.Rank,
		lowrank.WithLogger(logger),
		lowrank.WithConcurrency(opts.Workers),
	)
	if err != nil {
		return err
	}
	for _, rank := range opts.Sweep {
		if rank <= 0 {
			return fmt.Errorf("sweep: %w: got %d", lowrank.ErrInvalidRank, rank)
		}
	}

	logger.WithField("path", opts.Args.Input).Info("decoding image")
	f, err := os.Open(opts.Args.Input)
	if err != nil {
		return err
	}
	src, inFormat, err := raster.Decode(f)
	f.Close()
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"format": inFormat,
		"width":  src.Bounds().Dx(),
		"height": src.Bounds().Dy(),
	}).Debug("decoded image")

	var dist image.Image
	if len(opts.Sweep) > 0 {
		// One factorization serves the output image and every swept rank.
		start := time.Now()
		b, err := lowrank.NewBatch(ctx, src, lowrank.WithLogger(logger), lowrank.WithConcurrency(opts.Workers))
		if err != nil {
			return err
		}
		logger.WithField("took", time.Since(start)).Debug("factorized image")
		if dist, err = b.Image(ctx, c.Rank()); err != nil {
			return err
		}
		if err := sweep(ctx, stdout, b, opts.Sweep); err != nil {
			return err
		}
	} else if dist, err = c.Compress(ctx, src); err != nil {
		return err
	}

	// Encode into a temporary file next to the output and rename it into place,
	// so a failed encode never leaves a partial file.
	logger.WithFields(logrus.Fields{"path": opts.Output, "format": format}).Info("encoding image")
	tmp, err := os.CreateTemp(filepath.Dir(opts.Output), ".lowrank-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := raster.Encode(tmp, dist, format, raster.EncodeOptions{JPEGQuality: opts.JPEGQuality}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), opts.Output)
}

func outputFormat(opts options) (raster.Format, error) {
	if opts.Format != "" {
		return raster.Format(opts.Format), nil
	}
	f, err := raster.FormatFromPath(opts.Output)
	if err != nil {
		return "", err
	}
	if f == raster.WEBP {
		return "", fmt.Errorf("%w: no webp encoder, use --format", raster.ErrUnsupportedFormat)
	}
	return f, nil
}

func sweep(ctx context.Context, w io.Writer, b *lowrank.Batch, ranks []int) error {
	fmt.Fprintf(w, "%6s %6s %12s %12s %10s %8s\n", "rank", "eff", "frobenius", "mse", "psnr(dB)", "ratio")
	for _, rank := range ranks {
		rep, err := b.Report(ctx, rank)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%6d %6d %12.4f %12.4f %10.2f %8.4f\n",
			rep.Rank, rep.EffectiveRank, rep.FrobeniusError, rep.MSE, rep.PSNR, rep.Ratio)
	}
	return nil
}
