package dmodel

import (
	"github.com/evolab/anceps/evoerr"
	"github.com/evolab/anceps/optimize"
)

// TraitModel is a discrete trait model which can be optimized and
// queried for ancestral states.
type TraitModel interface {
	optimize.Optimizable
	// GetNClass returns the number of rate classes.
	GetNClass() int
	// GetData returns the underlying data.
	GetData() *Data
	// RateMatrix returns the current rate matrix as a row-major
	// array.
	RateMatrix() []float64
	// Ancestral computes marginal ancestral state probabilities for
	// the current parameter values.
	Ancestral() *AncestralStates
}

// New creates a trait model by variant name (ER or ARD).
func New(variant string, data *Data, ncat int) (TraitModel, error) {
	switch variant {
	case "ER":
		return NewER(data, ncat), nil
	case "ARD":
		return NewARD(data, ncat), nil
	}
	return nil, evoerr.NewModelError("unknown rate matrix variant <%s>", variant)
}

// Ancestral computes marginal ancestral state probabilities.
func (m *ER) Ancestral() *AncestralStates {
	m.update()
	return m.BaseModel.ancestral()
}

// Ancestral computes marginal ancestral state probabilities.
func (m *ARD) Ancestral() *AncestralStates {
	m.update()
	return m.BaseModel.ancestral()
}
