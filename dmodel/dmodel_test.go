package dmodel

import (
	"math"
	"strings"
	"testing"

	"github.com/op/go-logging"

	"github.com/evolab/anceps/evoerr"
	"github.com/evolab/anceps/optimize"
	"github.com/evolab/anceps/trait"
	"github.com/evolab/anceps/tree"
)

const (
	pairTree = "(a:1,b:1):0;"
	quadTree = "((a:1,b:1):1,(c:1,d:1):1):0;"

	smallDiff = 1e-6
)

func init() {
	logging.SetLevel(logging.WARNING, "optimize")
	logging.SetLevel(logging.WARNING, "dmodel")
}

func getData(tst *testing.T, newick, table string, columns ...string) *Data {
	t, err := tree.ParseNewick(strings.NewReader(newick))
	if err != nil {
		tst.Fatal("Error parsing tree:", err)
	}
	tbl, err := trait.ReadTable(strings.NewReader(table))
	if err != nil {
		tst.Fatal("Error parsing table:", err)
	}
	data, err := NewData(t, tbl, columns...)
	if err != nil {
		tst.Fatal("Error matching data:", err)
	}
	return data
}

// Two leaves at distance 1 from the root, two states. The transition
// probability of staying is (1+e^-2rt)/2, so the likelihood has a
// closed form.
func TestERPair(tst *testing.T) {
	same := getData(tst, pairTree, "taxon\thabit\na\tA\nb\tA\n", "habit")
	diff := getData(tst, pairTree, "taxon\thabit\na\tA\nb\tB\n", "habit")

	rate := 1.0
	pStay := (1 + math.Exp(-2*rate)) / 2
	pMove := (1 - math.Exp(-2*rate)) / 2

	m := NewER(same, 1)
	m.SetParameters(rate, 0)
	L := m.Likelihood()
	refL := math.Log(0.5 * (pStay*pStay + pMove*pMove))
	if math.Abs(L-refL) > smallDiff {
		tst.Error("Expected", refL, ", got", L)
	}

	m = NewER(diff, 1)
	m.SetParameters(rate, 0)
	L = m.Likelihood()
	refL = math.Log(pStay * pMove)
	if math.Abs(L-refL) > smallDiff {
		tst.Error("Expected", refL, ", got", L)
	}
}

// With an ambiguous observation the likelihood sums over the leaf
// states. The second column keeps both states in the alphabet.
func TestMissingObservation(tst *testing.T) {
	data := getData(tst, pairTree, "taxon\thabit\tmode\na\tA\tA\nb\t?\tB\n", "habit", "mode")
	m := NewER(data, 1)
	m.SetParameters(1, 0)
	L := m.Likelihood()
	pStay := (1 + math.Exp(-2)) / 2
	pMove := (1 - math.Exp(-2)) / 2
	// summing over the states of b gives the marginal probability
	// of observing a alone
	refL := math.Log(0.5) + math.Log(pStay*pMove)
	if math.Abs(L-refL) > smallDiff {
		tst.Error("Expected", refL, ", got", L)
	}
}

func TestMissingLeaf(tst *testing.T) {
	t, err := tree.ParseNewick(strings.NewReader(quadTree))
	if err != nil {
		tst.Fatal("Error parsing tree:", err)
	}
	tbl, err := trait.ReadTable(strings.NewReader("taxon\thabit\na\tA\nb\tA\nc\tB\n"))
	if err != nil {
		tst.Fatal("Error parsing table:", err)
	}
	_, err = NewData(t, tbl, "habit")
	if err == nil {
		tst.Fatal("Expected an error for a leaf with no observation")
	}
	if _, ok := err.(*evoerr.DataError); !ok {
		tst.Error("Expected a DataError, got:", err)
	}
}

func TestUnknownVariant(tst *testing.T) {
	data := getData(tst, pairTree, "taxon\thabit\na\tA\nb\tB\n", "habit")
	_, err := New("SYM", data, 1)
	if err == nil {
		tst.Fatal("Expected an error for an unknown variant")
	}
	if _, ok := err.(*evoerr.ModelError); !ok {
		tst.Error("Expected a ModelError, got:", err)
	}
}

func TestFrequency(tst *testing.T) {
	data := getData(tst, quadTree, "taxon\thabit\na\tA\nb\tA\nc\tA\nd\tB\n", "habit")
	if err := data.SetFrequency(FOBS); err != nil {
		tst.Fatal("Error setting frequency:", err)
	}
	freq := data.Freq()
	if math.Abs(freq[0]-0.75) > smallDiff || math.Abs(freq[1]-0.25) > smallDiff {
		tst.Error("Unexpected observed frequencies:", freq)
	}
	if err := data.SetFrequency("F3X4"); err == nil {
		tst.Error("Expected an error for an unknown root prior")
	}
}

// Fitting the equal-rates model on clustered data should find a
// positive finite rate; re-feeding the optimum has to reproduce the
// reported likelihood.
func TestERFit(tst *testing.T) {
	data := getData(tst, quadTree, "taxon\thabit\na\tA\nb\tA\nc\tB\nd\tB\n", "habit")
	m := NewER(data, 1)

	opt := optimize.NewDS()
	opt.Quiet = true
	opt.SetOptimizable(m)
	opt.Run(1000)

	maxL := opt.GetMaxLikelihood()
	par := opt.GetMaxLikelihoodParameters()
	if math.IsInf(maxL, 0) || math.IsNaN(maxL) {
		tst.Fatal("Non-finite maximum likelihood:", maxL)
	}
	if par["rate"] <= 0 {
		tst.Error("Expected a positive fitted rate, got", par["rate"])
	}

	newM := NewER(data, 1)
	newM.GetFloatParameters().SetFromMap(par)
	L := newM.Likelihood()
	if math.Abs(L-maxL) > smallDiff {
		tst.Error("Expected", maxL, ", got", L)
	}
}

func TestARDParameters(tst *testing.T) {
	data := getData(tst, quadTree, "taxon\thabit\na\tA\nb\tA\nc\tB\nd\tB\n", "habit")
	m := NewARD(data, 1)
	par := m.GetFloatParameters()
	if len(par) != 2 {
		tst.Fatal("Expected 2 free rates for 2 states, got", len(par))
	}
	L := m.Likelihood()
	if math.IsNaN(L) || math.IsInf(L, 0) {
		tst.Error("Non-finite likelihood:", L)
	}

	// with equal rates ARD has to match ER
	er := NewER(data, 1)
	er.SetParameters(0.3, 0)
	par.SetValues([]float64{0.3, 0.3})
	if math.Abs(m.Likelihood()-er.Likelihood()) > smallDiff {
		tst.Error("ARD with equal rates should match ER")
	}
}

func TestGammaClasses(tst *testing.T) {
	data := getData(tst, quadTree, "taxon\thabit\na\tA\nb\tA\nc\tB\nd\tB\n", "habit")
	m := NewER(data, 4)
	par := m.GetFloatParameters()
	if len(par) != 2 {
		tst.Fatal("Expected rate and alpha parameters, got", len(par))
	}
	m.SetParameters(1, 1)
	L := m.Likelihood()
	if math.IsNaN(L) || math.IsInf(L, 0) {
		tst.Fatal("Non-finite likelihood:", L)
	}

	// with a huge shape the rates collapse to 1 and +G matches the
	// single class model
	m.SetParameters(1, 1e6)
	single := NewER(data, 1)
	single.SetParameters(1, 0)
	if math.Abs(m.Likelihood()-single.Likelihood()) > 1e-4 {
		tst.Error("Large alpha should match the single class model")
	}
}

func TestAncestral(tst *testing.T) {
	data := getData(tst, quadTree, "taxon\thabit\na\tA\nb\tA\nc\tB\nd\tB\n", "habit")
	m := NewER(data, 1)
	m.SetParameters(0.1, 0)

	anc := m.Ancestral()
	if len(anc.Probs) != 1 {
		tst.Fatal("Expected posteriors for a single character")
	}
	probs := anc.Probs[0]
	nInternal := 0
	for _, p := range probs {
		if p == nil {
			continue
		}
		nInternal++
		total := 0.0
		for _, v := range p {
			if v < 0 {
				tst.Error("Negative posterior probability:", v)
			}
			total += v
		}
		if math.Abs(total-1) > smallDiff {
			tst.Error("Posterior should sum to 1, got", total)
		}
	}
	if nInternal != 3 {
		tst.Error("Expected 3 internal nodes, got", nInternal)
	}
}

// With a very small rate the ancestral states follow the observations.
// The second column keeps two states in the alphabet.
func TestAncestralSmallRate(tst *testing.T) {
	data := getData(tst, quadTree, "taxon\thabit\tmode\na\tA\tA\nb\tA\tB\nc\tA\tA\nd\tA\tB\n",
		"habit", "mode")
	m := NewER(data, 1)
	m.SetParameters(0.01, 0)

	anc := m.Ancestral()
	for _, p := range anc.Probs[0] {
		if p == nil {
			continue
		}
		if p[0] < 0.99 {
			tst.Error("Expected a near-certain ancestral state, got", p)
		}
	}
}

func TestInformationCriteria(tst *testing.T) {
	if AIC(-10, 1) != 22 {
		tst.Error("Unexpected AIC:", AIC(-10, 1))
	}
	if AICc(-10, 1, 4) != 24 {
		tst.Error("Unexpected AICc:", AICc(-10, 1, 4))
	}
	if !math.IsInf(AICc(-10, 3, 4), +1) {
		tst.Error("AICc should be +Inf for a saturated model")
	}
	if AICc(-10, 2, 10) <= AICc(-10, 1, 10) {
		tst.Error("AICc should penalize extra parameters")
	}
}
