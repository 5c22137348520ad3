package dmodel

import (
	"errors"
	"math"

	"github.com/gonum/matrix/mat64"
)

// expTerms is the number of series terms for the scaled matrix.
const expTerms = 13

// EMatrix stores a rate matrix together with a rate multiplier and
// computes e^{Q*rate*t}. The exponential uses scaling and squaring; a
// general rate matrix (e.g. all-rates-different) is not symmetric, so
// no eigendecomposition is assumed.
type EMatrix struct {
	// Q is the rate matrix.
	Q *mat64.Dense
	// Rate is a rate multiplier (e.g. a gamma class rate).
	Rate float64
}

// NewEMatrix creates a new EMatrix.
func NewEMatrix(Q *mat64.Dense) *EMatrix {
	return &EMatrix{Q: Q, Rate: 1}
}

// Copy creates a copy of EMatrix sharing the rate matrix.
func (m *EMatrix) Copy() *EMatrix {
	return &EMatrix{Q: m.Q, Rate: m.Rate}
}

// Set sets the rate matrix.
func (m *EMatrix) Set(Q *mat64.Dense) {
	m.Q = Q
}

// ScaleRate multiplies the rate multiplier.
func (m *EMatrix) ScaleRate(rate float64) {
	m.Rate *= rate
}

// Exp computes P = e^{Q*Rate*t} and returns it as a row-major array.
func (m *EMatrix) Exp(t float64) ([]float64, error) {
	rows, cols := m.Q.Dims()
	if rows != cols {
		return nil, errors.New("Q isn't a square matrix")
	}
	if t < 0 || math.IsNaN(t) {
		return nil, errors.New("invalid branch length")
	}

	a := mat64.NewDense(rows, cols, nil)
	a.Scale(t*m.Rate, m.Q)

	// Infinity norm of the scaled matrix.
	norm := 0.0
	for i := 0; i < rows; i++ {
		s := 0.0
		for j := 0; j < cols; j++ {
			s += math.Abs(a.At(i, j))
		}
		norm = math.Max(norm, s)
	}

	// Scale down until the norm is small enough for the series.
	squarings := 0
	for norm > 0.5 {
		norm /= 2
		squarings++
	}
	if squarings > 0 {
		a.Scale(1/math.Pow(2, float64(squarings)), a)
	}

	res := identity(rows)
	term := identity(rows)
	tmp := mat64.NewDense(rows, cols, nil)
	for k := 1; k <= expTerms; k++ {
		tmp.Mul(term, a)
		term, tmp = tmp, term
		term.Scale(1/float64(k), term)
		res.Add(res, term)
	}
	for ; squarings > 0; squarings-- {
		tmp.Mul(res, res)
		res, tmp = tmp, res
	}

	// Remove slightly negative values.
	p := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p[i*cols+j] = math.Max(0, res.At(i, j))
		}
	}
	return p, nil
}

// identity returns an n by n identity matrix.
func identity(n int) *mat64.Dense {
	m := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
