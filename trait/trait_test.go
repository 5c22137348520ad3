package trait

import (
	"strings"
	"testing"

	"github.com/evolab/anceps/evoerr"
)

const table1 = `taxon	mass	habit
a	2.0	arboreal
b	4.0	terrestrial
c	?	arboreal
d	3.5	?
`

func TestReadTable(tst *testing.T) {
	t, err := ReadTable(strings.NewReader(table1))
	if err != nil {
		tst.Fatal("Error reading table:", err)
	}

	cols := t.Columns()
	if len(cols) != 2 || cols[0] != "mass" || cols[1] != "habit" {
		tst.Error("Wrong columns:", cols)
	}
	if len(t.Taxa()) != 4 {
		tst.Error("Wrong taxa:", t.Taxa())
	}
	if !t.HasColumn("habit") || t.HasColumn("color") {
		tst.Error("HasColumn is wrong")
	}
}

func TestContinuous(tst *testing.T) {
	t, err := ReadTable(strings.NewReader(table1))
	if err != nil {
		tst.Fatal("Error reading table:", err)
	}

	vals, err := t.Continuous("mass")
	if err != nil {
		tst.Fatal("Error getting continuous trait:", err)
	}
	if len(vals) != 3 {
		tst.Error("Expected 3 observations, got", len(vals))
	}
	if vals["a"] != 2.0 || vals["b"] != 4.0 || vals["d"] != 3.5 {
		tst.Error("Wrong values:", vals)
	}
	if _, ok := vals["c"]; ok {
		tst.Error("Missing observation should be skipped")
	}
}

func TestContinuousNotNumber(tst *testing.T) {
	t, err := ReadTable(strings.NewReader(table1))
	if err != nil {
		tst.Fatal("Error reading table:", err)
	}

	_, err = t.Continuous("habit")
	if err == nil {
		tst.Fatal("Expected an error for a non-numeric trait")
	}
	if _, ok := err.(*evoerr.DataError); !ok {
		tst.Error("Expected a DataError, got:", err)
	}
}

func TestDiscrete(tst *testing.T) {
	t, err := ReadTable(strings.NewReader(table1))
	if err != nil {
		tst.Fatal("Error reading table:", err)
	}

	vals, err := t.Discrete("habit")
	if err != nil {
		tst.Fatal("Error getting discrete trait:", err)
	}
	if vals["a"] != "arboreal" || vals["b"] != "terrestrial" || vals["d"] != Missing {
		tst.Error("Wrong values:", vals)
	}

	states := t.States("habit")
	if len(states) != 2 || states[0] != "arboreal" || states[1] != "terrestrial" {
		tst.Error("Wrong states:", states)
	}
}

func TestDuplicateTaxon(tst *testing.T) {
	_, err := ReadTable(strings.NewReader("taxon	x\na	1\na	2\n"))
	if err == nil {
		tst.Error("Expected an error for a duplicate taxon")
	}
}
