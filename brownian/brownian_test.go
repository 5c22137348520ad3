package brownian

import (
	"math"
	"strings"
	"testing"

	"github.com/evolab/anceps/evoerr"
	"github.com/evolab/anceps/tree"
)

const (
	pairTree  = "(a:1,b:1):0;"
	quadTree  = "((a:1,b:1):1,(c:1,d:1):1):0;"
	chainTree = "((a:1):1,b:2):0;"

	smallDiff = 1e-6
)

func getTree(tst *testing.T, newick string) *tree.Tree {
	t, err := tree.ParseNewick(strings.NewReader(newick))
	if err != nil {
		tst.Fatal("Error parsing tree:", err)
	}
	return t
}

func reconstruct(tst *testing.T, newick string, values map[string]float64) *Reconstruction {
	bm, err := New(getTree(tst, newick), values)
	if err != nil {
		tst.Fatal("Error matching data:", err)
	}
	return bm.Reconstruct()
}

// Two leaves at equal distance: the root estimate is the mean.
func TestPair(tst *testing.T) {
	r := reconstruct(tst, pairTree, map[string]float64{"a": 2, "b": 4})
	if math.Abs(r.Values[0]-3) > smallDiff {
		tst.Error("Expected root estimate 3, got", r.Values[0])
	}
}

// Balanced four-leaf tree: the root is the grand mean and the internal
// estimates are symmetric around it.
func TestBalanced(tst *testing.T) {
	t := getTree(tst, quadTree)
	bm, err := New(t, map[string]float64{"a": 0, "b": 2, "c": 4, "d": 6})
	if err != nil {
		tst.Fatal("Error matching data:", err)
	}
	r := bm.Reconstruct()

	root := t.Node
	if math.Abs(r.Values[root.ID]-3) > smallDiff {
		tst.Error("Expected root estimate 3, got", r.Values[root.ID])
	}

	n1 := root.ChildNodes()[0]
	n2 := root.ChildNodes()[1]
	if math.Abs(r.Values[n1.ID]-5.0/3) > smallDiff {
		tst.Error("Expected 5/3, got", r.Values[n1.ID])
	}
	if math.Abs(r.Values[n2.ID]-13.0/3) > smallDiff {
		tst.Error("Expected 13/3, got", r.Values[n2.ID])
	}
	if math.Abs((r.Values[n1.ID]+r.Values[n2.ID])/2-3) > smallDiff {
		tst.Error("Internal estimates should be symmetric around the root")
	}

	// leaves keep their observations
	for node := range t.Terminals() {
		obs := map[string]float64{"a": 0, "b": 2, "c": 4, "d": 6}[node.Name]
		if r.Values[node.ID] != obs {
			tst.Error("Leaf value changed:", node.Name, r.Values[node.ID])
		}
	}
}

// A node with a single child takes the value of its child.
func TestSingleChild(tst *testing.T) {
	t := getTree(tst, chainTree)
	bm, err := New(t, map[string]float64{"a": 5, "b": 1})
	if err != nil {
		tst.Fatal("Error matching data:", err)
	}
	r := bm.Reconstruct()

	var chain *tree.Node
	for node := range t.NonTerminals() {
		if !node.IsRoot() && len(node.ChildNodes()) == 1 {
			chain = node
		}
	}
	if chain == nil {
		tst.Fatal("No single-child node in the tree")
	}
	if r.Values[chain.ID] != 5 {
		tst.Error("Expected the child value 5, got", r.Values[chain.ID])
	}
}

// A leaf on a zero-length branch pins the outside information for its
// siblings; all the estimates stay finite.
func TestZeroBranchSibling(tst *testing.T) {
	t := getTree(tst, "(a:0,(b:1,c:1):1):0;")
	bm, err := New(t, map[string]float64{"a": 2, "b": 4, "c": 6})
	if err != nil {
		tst.Fatal("Error matching data:", err)
	}
	r := bm.Reconstruct()

	for node := range t.Walker(nil) {
		if math.IsNaN(r.Values[node.ID]) || math.IsInf(r.Values[node.ID], 0) {
			tst.Fatal("Non-finite estimate at node", node.ID)
		}
	}

	// the zero-length leaf pins the root value
	if math.Abs(r.Values[t.Node.ID]-2) > smallDiff {
		tst.Error("Expected root estimate 2, got", r.Values[t.Node.ID])
	}
	var inner *tree.Node
	for node := range t.NonTerminals() {
		if !node.IsRoot() {
			inner = node
		}
	}
	// below estimate 5 with variance 1/2, outside pinned to 2 at
	// distance 1
	if math.Abs(r.Values[inner.ID]-4) > smallDiff {
		tst.Error("Expected internal estimate 4, got", r.Values[inner.ID])
	}
}

func TestMissingLeaf(tst *testing.T) {
	_, err := New(getTree(tst, pairTree), map[string]float64{"a": 2})
	if err == nil {
		tst.Fatal("Expected an error for a leaf with no observation")
	}
	if _, ok := err.(*evoerr.DataError); !ok {
		tst.Error("Expected a DataError, got:", err)
	}
}

func TestNaNObservation(tst *testing.T) {
	_, err := New(getTree(tst, pairTree), map[string]float64{"a": 2, "b": math.NaN()})
	if err == nil {
		tst.Fatal("Expected an error for a non-finite observation")
	}
	if _, ok := err.(*evoerr.DataError); !ok {
		tst.Error("Expected a DataError, got:", err)
	}
}

// Ramp endpoints have to match the node estimates and the node depths.
func TestRamp(tst *testing.T) {
	t := getTree(tst, quadTree)
	bm, err := New(t, map[string]float64{"a": 0, "b": 2, "c": 4, "d": 6})
	if err != nil {
		tst.Fatal("Error matching data:", err)
	}
	r := bm.Reconstruct()
	ramps := r.Ramp(10)

	if ramps[t.Node.ID] != nil {
		tst.Error("The root has no incoming edge")
	}
	for node := range t.Walker(nil) {
		if node.IsRoot() {
			continue
		}
		trace := ramps[node.ID]
		if len(trace) != 11 {
			tst.Fatal("Expected 11 points, got", len(trace))
		}
		first := trace[0]
		last := trace[len(trace)-1]
		if math.Abs(first.Value-r.Values[node.Parent.ID]) > smallDiff {
			tst.Error("Ramp start should match the parent estimate")
		}
		if math.Abs(last.Value-r.Values[node.ID]) > smallDiff {
			tst.Error("Ramp end should match the node estimate")
		}
		if math.Abs(last.Time-first.Time-node.BranchLength) > smallDiff {
			tst.Error("Ramp should span the branch length")
		}
	}
}
