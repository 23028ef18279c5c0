package pixel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrMalformedBuffer = errors.New("pixel buffer does not match its dimensions")

// Extract splits an interleaved 8-bit buffer into one matrix per channel.
//
// Each matrix is height x width: the sample of channel c at image position (x, y)
// is stored at (y, x). Pixels are scanned row-major, y outer and x inner, which is
// also the order of the matrices' backing data.
func Extract(buf []byte, width, height, channels int) ([]*mat.Dense, error) {
	if err := Validate(len(buf), width, height, channels); err != nil {
		return nil, err
	}

	area := width * height
	data := make([][]float64, channels)
	for c := range channels {
		data[c] = make([]float64, area)
	}
	for idx := range area {
		px := buf[idx*channels : (idx+1)*channels : (idx+1)*channels]
		for c, v := range px {
			data[c][idx] = float64(v)
		}
	}

	mats := make([]*mat.Dense, channels)
	for c := range channels {
		mats[c] = mat.NewDense(height, width, data[c])
	}
	return mats, nil
}

// Validate checks that a buffer of length n can hold width x height pixels of channels samples.
func Validate(n, width, height, channels int) error {
	switch {
	case channels < 1:
		return fmt.Errorf("%w: channel count %d", ErrMalformedBuffer, channels)
	case width < 1 || height < 1:
		return fmt.Errorf("%w: dimensions %dx%d", ErrMalformedBuffer, width, height)
	case n != width*height*channels:
		return fmt.Errorf("%w: length %d != %dx%dx%d", ErrMalformedBuffer, n, width, height, channels)
	}
	return nil
}

// Recombine interleaves the channel matrices back into an 8-bit buffer,
// converting every value with Sample. All matrices must share the same shape.
func Recombine(mats []mat.Matrix) ([]byte, error) {
	if len(mats) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrMalformedBuffer)
	}
	height, width := mats[0].Dims()
	for c, m := range mats[1:] {
		if r, cc := m.Dims(); r != height || cc != width {
			return nil, fmt.Errorf("%w: channel %d is %dx%d, want %dx%d", ErrMalformedBuffer, c+1, cc, r, width, height)
		}
	}

	channels := len(mats)
	buf := make([]byte, width*height*channels)
	idx := 0
	for y := range height {
		for x := range width {
			for c, m := range mats {
				buf[idx+c] = Sample(m.At(y, x))
			}
			idx += channels
		}
	}
	return buf, nil
}

// Sample converts an approximated value to an 8-bit sample: clamp(round(v), 0, 255).
// Rounding is math.Round, half away from zero, so 127.5 becomes 128 and -0.5 becomes 0
// after clamping. NaN maps to 0.
func Sample(v float64) uint8 {
	r := math.Round(v)
	if !(r > 0) {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
