package dmodel

import (
	"sort"

	"github.com/evolab/anceps/evoerr"
	"github.com/evolab/anceps/trait"
	"github.com/evolab/anceps/tree"
)

// Root prior names.
const (
	// F0 is the uniform root prior.
	F0 = "F0"
	// FOBS uses the observed state frequencies as the root prior.
	FOBS = "FOBS"
)

// Data stores a tree together with discrete observations for its
// leaves. Several trait columns sharing a state alphabet may be stored
// together; they are treated as independent characters.
type Data struct {
	// Tree is the phylogenetic tree.
	Tree *tree.Tree
	// States is the sorted state alphabet.
	States []string
	// obs[leafID][pos] is a state index, -1 for a missing
	// observation.
	obs [][]int
	// freq is the root prior over the states.
	freq []float64
}

// NewData matches a tree with discrete trait columns from a table.
// Every leaf has to be present in the table; missing observations are
// allowed.
func NewData(t *tree.Tree, table *trait.Table, columns ...string) (*Data, error) {
	if err := t.Validate(); err != nil {
		return nil, evoerr.NewDataError("invalid tree: %v", err)
	}
	if len(columns) == 0 {
		return nil, evoerr.NewDataError("no trait columns given")
	}

	seen := make(map[string]bool)
	states := make([]string, 0)
	values := make([]map[string]string, len(columns))
	for i, c := range columns {
		vals, err := table.Discrete(c)
		if err != nil {
			return nil, err
		}
		values[i] = vals
		for _, s := range table.States(c) {
			if !seen[s] {
				seen[s] = true
				states = append(states, s)
			}
		}
	}
	sort.Strings(states)
	if len(states) < 2 {
		return nil, evoerr.NewDataError("need at least two observed states, got %d", len(states))
	}
	index := make(map[string]int, len(states))
	for i, s := range states {
		index[s] = i
	}

	data := &Data{
		Tree:   t,
		States: states,
		obs:    make([][]int, t.NLeaves()),
	}
	for node := range t.Terminals() {
		row := make([]int, len(columns))
		for pos, vals := range values {
			v, ok := vals[node.Name]
			if !ok {
				return nil, evoerr.NewDataError("no observation for leaf <%s>", node.Name)
			}
			if v == trait.Missing {
				row[pos] = -1
			} else {
				row[pos] = index[v]
			}
		}
		data.obs[node.LeafID] = row
	}

	data.freq = uniformFrequency(len(states))
	return data, nil
}

// NStates returns the state alphabet size.
func (data *Data) NStates() int {
	return len(data.States)
}

// NPos returns the number of characters.
func (data *Data) NPos() int {
	if len(data.obs) == 0 {
		return 0
	}
	return len(data.obs[0])
}

// Freq returns the root prior.
func (data *Data) Freq() []float64 {
	return data.freq
}

// SetFrequency sets the root prior by name (F0 or FOBS).
func (data *Data) SetFrequency(name string) error {
	switch name {
	case F0:
		data.freq = uniformFrequency(data.NStates())
	case FOBS:
		data.freq = data.observedFrequency()
	default:
		return evoerr.NewModelError("unknown root prior <%s>", name)
	}
	return nil
}

// uniformFrequency returns the uniform distribution over k states.
func uniformFrequency(k int) []float64 {
	freq := make([]float64, k)
	for i := range freq {
		freq[i] = 1 / float64(k)
	}
	return freq
}

// observedFrequency returns the observed state frequencies; missing
// observations are skipped.
func (data *Data) observedFrequency() []float64 {
	counts := make([]float64, data.NStates())
	total := 0.0
	for _, row := range data.obs {
		for _, s := range row {
			if s < 0 {
				continue
			}
			counts[s]++
			total++
		}
	}
	if total == 0 {
		return uniformFrequency(data.NStates())
	}
	for i := range counts {
		counts[i] /= total
	}
	return counts
}
