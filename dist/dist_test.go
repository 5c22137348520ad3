package dist

import (
	"math"
	"testing"
)

const smallDiff = 1e-6

func appreq(a, b float64) bool {
	return math.Abs(a-b) <= smallDiff
}

/*** Test that category rates average to alpha/beta ***/
func TestGammaMean(tst *testing.T) {
	settings := [...]struct {
		n      int
		a, b   float64
		median bool
	}{
		{4, 0.5, 0.5, false},
		{4, 0.5, 0.5, true},
		{8, 2, 2, false},
		{5, 1.3, 0.7, false},
		{5, 1.3, 0.7, true},
	}
	for _, s := range settings {
		r := DiscreteGamma(s.a, s.b, s.n, s.median, nil, nil)
		sum := 0.0
		for _, v := range r {
			sum += v
		}
		mean := sum / float64(s.n)
		if !appreq(mean, s.a/s.b) {
			tst.Errorf("alpha=%v beta=%v n=%v median=%v: mean=%v, expected %v",
				s.a, s.b, s.n, s.median, mean, s.a/s.b)
		}
	}
}

/*** Test that category rates are positive and increasing ***/
func TestGammaMonotonic(tst *testing.T) {
	r := DiscreteGamma(0.3, 0.3, 6, false, nil, nil)
	prev := 0.0
	for _, v := range r {
		if v <= prev {
			tst.Error("Rates should be positive and increasing, got", r)
			break
		}
		prev = v
	}
}

/*** Single category is the mean ***/
func TestGammaSingle(tst *testing.T) {
	r := DiscreteGamma(1.7, 1.7, 1, false, nil, nil)
	if len(r) != 1 || !appreq(r[0], 1) {
		tst.Error("Expected a single unit rate, got", r)
	}
}

/*** Quantile sanity ***/
func TestQuantiles(tst *testing.T) {
	// median of Chi2 with 2 df is 2*ln(2)
	if math.Abs(QuantileChi2(0.5, 2)-2*math.Ln2) > 1e-4 {
		tst.Error("Wrong Chi2 quantile:", QuantileChi2(0.5, 2))
	}
	if !appreq(QuantileNormal(0.5), 0) {
		tst.Error("Wrong normal quantile:", QuantileNormal(0.5))
	}
	// exponential with rate 1: P(x < ln 2) = 0.5
	if math.Abs(IncompleteGamma(math.Ln2, 1)-0.5) > 1e-6 {
		tst.Error("Wrong incomplete gamma:", IncompleteGamma(math.Ln2, 1))
	}
}
