package dmodel

import (
	"github.com/gonum/matrix/mat64"

	"github.com/evolab/anceps/dist"
	"github.com/evolab/anceps/optimize"
)

// rate boundaries shared by the discrete models
const (
	minRate = 0
	maxRate = 100
	// gamma shape boundaries
	minAlpha = 1e-2
	maxAlpha = 1000
)

// ER is the equal-rates model: a single shared rate for all the
// ordered state pairs, with optional discrete-gamma rate variation
// among characters.
type ER struct {
	*BaseModel
	q    *EMatrix
	rate float64

	// gamma shape parameter
	alpha  float64
	gammar []float64
	ncat   int

	qdone     bool
	gammadone bool

	// temporary array for the gamma discretization
	tmp []float64
}

// NewER creates a new equal-rates model; ncat is the number of
// discrete-gamma classes (1 for no rate variation).
func NewER(data *Data, ncat int) (m *ER) {
	if ncat < 1 {
		ncat = 1
	}
	m = &ER{
		q:      NewEMatrix(mat64.NewDense(data.NStates(), data.NStates(), nil)),
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
func (m *ER) GetNClass() int {
	return m.ncat
}

// Copy makes a copy of the model preserving the parameter values.
func (m *ER) Copy() optimize.Optimizable {
	newM := &ER{
		BaseModel: m.BaseModel.Copy(),
		q:         NewEMatrix(mat64.NewDense(m.data.NStates(), m.data.NStates(), nil)),
		rate:      m.rate,
		alpha:     m.alpha,
		gammar:    make([]float64, m.ncat),
		ncat:      m.ncat,
		tmp:       make([]float64, m.ncat),
	}
	newM.BaseModel.Model = newM
	newM.setupParameters()
	return newM
}

// addParameters adds all the model parameters to the parameter
// storage.
func (m *ER) addParameters(fpg optimize.FloatParameterGenerator) {
	rate := fpg(&m.rate, "rate")
	rate.SetOnChange(func() {
		m.qdone = false
		m.expAllBr = false
	})
	rate.SetPriorFunc(optimize.GammaPrior(1, 2, false))
	rate.SetProposalFunc(optimize.NormalProposal(0.01))
	rate.SetMin(minRate)
	rate.SetMax(maxRate)
	m.parameters.Append(rate)

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

// GetParameters returns the rate and the gamma shape.
func (m *ER) GetParameters() (rate, alpha float64) {
	return m.rate, m.alpha
}

// SetParameters sets the rate and the gamma shape.
func (m *ER) SetParameters(rate, alpha float64) {
	m.rate = rate
	m.alpha = alpha
	m.qdone = false
	m.gammadone = false
	m.expAllBr = false
}

// SetDefaults sets the default initial parameter values.
func (m *ER) SetDefaults() {
	m.SetParameters(1, 1)
}

// updateMatrix rebuilds the rate matrix and the class matrices.
func (m *ER) updateMatrix() {
	n := m.data.NStates()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				m.q.Q.Set(i, j, -float64(n-1)*m.rate)
			} else {
				m.q.Q.Set(i, j, m.rate)
			}
		}
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
func (m *ER) update() {
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
func (m *ER) Likelihood() float64 {
	m.update()
	return m.BaseModel.Likelihood()
}

// RateMatrix returns the fitted rate matrix as a row-major array.
func (m *ER) RateMatrix() []float64 {
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
