package dmodel

import (
	"fmt"

	"github.com/gonum/matrix/mat64"

	"github.com/evolab/anceps/dist"
	"github.com/evolab/anceps/optimize"
)

// ARD is the all-rates-different model: one free rate per ordered
// state pair, with optional discrete-gamma rate variation among
// characters.
type ARD struct {
	*BaseModel
	q *EMatrix
	// rates are the off-diagonal entries in row-major order.
	rates []float64

	// gamma shape parameter
	alpha  float64
	gammar []float64
	ncat   int

	qdone     bool
	gammadone bool

	tmp []float64
}

// NewARD creates a new all-rates-different model; ncat is the number
// of discrete-gamma classes (1 for no rate variation).
func NewARD(data *Data, ncat int) (m *ARD) {
	if ncat < 1 {
		ncat = 1
	}
	n := data.NStates()
	m = &ARD{
		q:      NewEMatrix(mat64.NewDense(n, n, nil)),
		rates:  make([]float64, n*(n-1)),
		gammar: make([]float64, ncat),
		ncat:   ncat,
		tmp:    make([]float64, ncat),
	}
	m.BaseModel = NewBaseModel(data, m)

	m.setupParameters()
	m.SetDefaults()
	return
}

// GetNClass returns the number of rate classes.
func (m *ARD) GetNClass() int {
	return m.ncat
}

// Copy makes a copy of the model preserving the parameter values.
func (m *ARD) Copy() optimize.Optimizable {
	n := m.data.NStates()
	newM := &ARD{
		BaseModel: m.BaseModel.Copy(),
		q:         NewEMatrix(mat64.NewDense(n, n, nil)),
		rates:     make([]float64, n*(n-1)),
		alpha:     m.alpha,
		gammar:    make([]float64, m.ncat),
		ncat:      m.ncat,
		tmp:       make([]float64, m.ncat),
	}
	copy(newM.rates, m.rates)
	newM.BaseModel.Model = newM
	newM.setupParameters()
	return newM
}

// rateName returns the parameter name for a transition between two
// states.
func (m *ARD) rateName(from, to int) string {
	return fmt.Sprintf("q_%s_%s", m.data.States[from], m.data.States[to])
}

// addParameters adds all the model parameters to the parameter
// storage.
func (m *ARD) addParameters(fpg optimize.FloatParameterGenerator) {
	n := m.data.NStates()
	i := 0
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			if from == to {
				continue
			}
			rate := fpg(&m.rates[i], m.rateName(from, to))
			rate.SetOnChange(func() {
				m.qdone = false
				m.expAllBr = false
			})
			rate.SetPriorFunc(optimize.GammaPrior(1, 2, false))
			rate.SetProposalFunc(optimize.NormalProposal(0.01))
			rate.SetMin(minRate)
			rate.SetMax(maxRate)
			m.parameters.Append(rate)
			i++
		}
	}

	if m.ncat > 1 {
		alpha := fpg(&m.alpha, "alpha")
		alpha.SetOnChange(func() {
			m.gammadone = false
		})
		alpha.SetPriorFunc(optimize.GammaPrior(1, 2, false))
		alpha.SetProposalFunc(optimize.NormalProposal(0.01))
		alpha.SetMin(minAlpha)
		alpha.SetMax(maxAlpha)
		m.parameters.Append(alpha)
	}
}

// GetParameters returns the rates and the gamma shape.
func (m *ARD) GetParameters() (rates []float64, alpha float64) {
	return m.rates, m.alpha
}

// SetParameters sets the rates and the gamma shape.
func (m *ARD) SetParameters(rates []float64, alpha float64) {
	copy(m.rates, rates)
	m.alpha = alpha
	m.qdone = false
	m.gammadone = false
	m.expAllBr = false
}

// SetDefaults sets the default initial parameter values.
func (m *ARD) SetDefaults() {
	rates := make([]float64, len(m.rates))
	for i := range rates {
		rates[i] = 1
	}
	m.SetParameters(rates, 1)
}

// updateMatrix rebuilds the rate matrix and the class matrices.
func (m *ARD) updateMatrix() {
	n := m.data.NStates()
	i := 0
	for from := 0; from < n; from++ {
		rowSum := 0.0
		for to := 0; to < n; to++ {
			if from == to {
				continue
			}
			m.q.Q.Set(from, to, m.rates[i])
			rowSum += m.rates[i]
			i++
		}
		m.q.Q.Set(from, from, -rowSum)
	}

	for c := 0; c < m.ncat; c++ {
		m.qs[c] = m.q.Copy()
		m.qs[c].Rate = m.gammar[c]
		m.prop[c] = 1 / float64(m.ncat)
	}
	m.qdone = true
	m.expAllBr = false
}

// update updates the gamma rates and the matrices if needed.
func (m *ARD) update() {
	if !m.gammadone {
		if m.ncat > 1 {
			m.gammar = dist.DiscreteGamma(m.alpha, m.alpha, m.ncat, false, m.tmp, m.gammar)
			m.qdone = false
		} else {
			m.gammar[0] = 1
		}
		m.gammadone = true
	}
	if !m.qdone {
		m.updateMatrix()
	}
}

// Likelihood computes the log-likelihood.
func (m *ARD) Likelihood() float64 {
	m.update()
	return m.BaseModel.Likelihood()
}

// RateMatrix returns the fitted rate matrix as a row-major array.
func (m *ARD) RateMatrix() []float64 {
	m.update()
	n := m.data.NStates()
	q := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			q[i*n+j] = m.q.Q.At(i, j)
		}
	}
	return q
}
