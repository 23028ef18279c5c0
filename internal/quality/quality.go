package quality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MSE returns the mean squared error between two 8-bit buffers of equal length.
func MSE(a, b []byte) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("buffer length mismatch: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum / float64(len(a)), nil
}

// PSNR returns the peak signal-to-noise ratio in dB for 8-bit samples.
// Identical buffers give +Inf.
func PSNR(a, b []byte) (float64, error) {
	mse, err := MSE(a, b)
	if err != nil {
		return 0, err
	}
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 10 * math.Log10(255*255/mse), nil
}

// FrobeniusError returns ||a - b||_F.
func FrobeniusError(a, b mat.Matrix) float64 {
	var d mat.Dense
	d.Sub(a, b)
	return mat.Norm(&d, 2)
}

// Ratio returns the size of the rank-r factors of an m x n matrix
// relative to the matrix itself: r(m+n+1) / (mn), with r clamped to min(m, n).
func Ratio(m, n, rank int) float64 {
	if m < 1 || n < 1 || rank < 1 {
		return 0
	}
	r := min(rank, m, n)
	return float64(r*(m+n+1)) / float64(m*n)
}
