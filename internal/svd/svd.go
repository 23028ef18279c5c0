package svd

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrFactorization = errors.New("cannot factorize channel matrix")
	ErrInvalidRank   = errors.New("rank must be positive")
)

// Factorization holds the thin SVD A = U * diag(Σ) * V^T of an m x n matrix,
// where U is m x k, Σ has k values in descending order, V^T is k x n and k = min(m, n).
//
// When singular values repeat, the choice of singular vectors is left to LAPACK.
// The reconstructed product does not depend on that choice.
type Factorization struct {
	rows, cols int
	u          mat.Dense
	v          mat.Dense
	sigma      []float64
}

// Factorize computes the thin SVD of a. Both left and right singular vectors are computed.
// It returns ErrFactorization when a holds NaN or ±Inf or when LAPACK does not converge.
func Factorize(a mat.Matrix) (*Factorization, error) {
	rows, cols := a.Dims()
	for i := range rows {
		for j := range cols {
			if v := a.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite value %v at (%d, %d)", ErrFactorization, v, i, j)
			}
		}
	}

	var result mat.SVD
	if ok := result.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: %dx%d matrix did not converge", ErrFactorization, rows, cols)
	}

	f := &Factorization{rows: rows, cols: cols}
	f.sigma = result.Values(nil)
	result.UTo(&f.u)
	result.VTo(&f.v)
	return f, nil
}

// Dims returns the shape of the factorized matrix.
func (f *Factorization) Dims() (rows, cols int) {
	return f.rows, f.cols
}

// Values returns a copy of the singular values in descending order.
func (f *Factorization) Values() []float64 {
	return append([]float64(nil), f.sigma...)
}

// EffectiveRank clamps rank to the number of singular values.
func (f *Factorization) EffectiveRank(rank int) int {
	return min(rank, len(f.sigma))
}

// Truncate reconstructs the rank-r approximation U[:, :r] * diag(Σ[:r]) * V^T[:r, :]
// with r = min(rank, k). The diagonal is r x r; it is never padded back to k.
// A rank of k or more gives back the original matrix up to rounding.
func (f *Factorization) Truncate(rank int) (*mat.Dense, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRank, rank)
	}
	r := f.EffectiveRank(rank)

	u := f.u.Slice(0, f.rows, 0, r)
	sigma := mat.NewDiagDense(r, f.Values()[:r])
	vt := f.v.Slice(0, f.cols, 0, r).T()

	// Reconstruct A_r = U_r * Σ_r * V_r^T, m x n
	var res mat.Dense
	res.Product(u, sigma, vt)
	return &res, nil
}
