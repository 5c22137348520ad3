package optimize

import (
	"math/rand"
)

// UniformProposal returns a uniform proposal function of the given
// width.
func UniformProposal(width float64) func(float64) float64 {
	if width <= 0 {
		panic("width should be positive")
	}
	return func(x float64) float64 {
		return x + rand.Float64()*width - width/2
	}
}

// NormalProposal returns a normal proposal function with the given
// standard deviation.
func NormalProposal(sd float64) func(float64) float64 {
	if sd <= 0 {
		panic("sd should be positive")
	}
	return func(x float64) float64 {
		return x + rand.NormFloat64()*sd
	}
}
