package tree

import (
	"bytes"
	"testing"
)

const (
	tree1 = "((((a001:0.242690,a002:0.268555):0.073424,a003:0.252510):0.198740,((((((a004:0.001000,a005:0.014869):0.045007,a006:0.050606):0.056908,a007:0.166439):0.023217,a008:0.094788):0.429852,a009:0.558116):0.130317,(a010:0.009332,a011:0.024271):0.315124):0.217376):0.464470,a012:0.144369):0.0;"
	tree2 = "((a:1,b:2)90:3,c:1):0;"
)

func TestParse1(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree2))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	tst.Log("Got tree:", t)

	if t.NLeaves() != 3 {
		tst.Error("Expected 3 leaves, got", t.NLeaves())
	}
	if t.NNodes() != 5 {
		tst.Error("Expected 5 nodes, got", t.NNodes())
	}
	if t.String() != "((a:1.000000,b:2.000000):3.000000,c:1.000000):0.000000;" {
		tst.Error("Wrong tree string, got:", t)
	}
}

func TestSupport(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree2))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}

	nsup := 0
	for node := range t.NonTerminals() {
		if node.HasSupport {
			nsup++
			if node.Support != 90 {
				tst.Error("Expected support=90, got", node.Support)
			}
		}
	}
	if nsup != 1 {
		tst.Error("Expected a single support value, got", nsup)
	}
}

func TestNodeOrder(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree1))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}

	order := t.NodeOrder()
	seen := make(map[*Node]bool, t.NNodes())
	for node := range t.Terminals() {
		seen[node] = true
	}

	for _, node := range order {
		for _, child := range node.ChildNodes() {
			if !seen[child] {
				tst.Error("Child visited after the parent")
			}
		}
		seen[node] = true
	}

	if len(order) == 0 || !order[len(order)-1].IsRoot() {
		tst.Error("Root must come last in the node order")
	}
}

func TestLeafNames(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString(tree2))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}

	names := t.LeafNames()
	if len(names) != 3 ||
		names[0] != "a" || names[1] != "b" || names[2] != "c" {
		tst.Error("Wrong leaf names:", names)
	}
}

func TestDuplicateLeaf(tst *testing.T) {
	_, err := ParseNewick(bytes.NewBufferString("((a:1,a:2):1,c:1):0;"))
	if err == nil {
		tst.Error("Expected an error for duplicate leaf labels")
	}
}

func TestNegativeBranch(tst *testing.T) {
	_, err := ParseNewick(bytes.NewBufferString("((a:1,b:-0.5):1,c:1):0;"))
	if err == nil {
		tst.Error("Expected an error for a negative branch length")
	}
}

func TestBracketsMismatch(tst *testing.T) {
	_, err := ParseNewick(bytes.NewBufferString("((a:1,b:2):1,c:1)):0;"))
	if err == nil {
		tst.Error("Expected an error for unbalanced brackets")
	}
}
