package dmodel

import (
	"math"
)

// AIC computes the Akaike information criterion for a model with k
// free parameters. Lower is better.
func AIC(lnL float64, k int) float64 {
	return 2*float64(k) - 2*lnL
}

// AICc computes the small-sample corrected AIC; n is the sample size
// (the number of leaves). For n <= k+1 the correction is undefined and
// +Inf is returned.
func AICc(lnL float64, k, n int) float64 {
	if n <= k+1 {
		return math.Inf(+1)
	}
	return AIC(lnL, k) + 2*float64(k)*float64(k+1)/float64(n-k-1)
}
