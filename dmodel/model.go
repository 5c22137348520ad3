// Package dmodel implements continuous-time Markov models of discrete
// trait evolution on a phylogenetic tree.
package dmodel

import (
	"math"

	"github.com/op/go-logging"

	"github.com/evolab/anceps/optimize"
)

// log is the package logging variable.
var log = logging.MustGetLogger("dmodel")

const (
	// If the proportion of a rate class is less than this number no
	// need to compute probability.
	smallProp = 1e-20
)

// Model is an interface for the model. It provides information about
// the number of rate classes and allows adding parameters.
type Model interface {
	// GetNClass returns the number of rate classes.
	GetNClass() int
	// addParameters adds all the parameters of the Model.
	addParameters(optimize.FloatParameterGenerator)
}

// BaseModel stores the data and the rate class matrices; exponentiated
// matrices are cached per class and branch.
type BaseModel struct {
	// Model is the model implementation.
	Model

	data *Data
	// qs are the rate matrices, one per class.
	qs []*EMatrix
	// prop are the class proportions.
	prop       []float64
	nclass     int
	parameters optimize.FloatParameters

	// remember computations we need to perform
	expAllBr bool
	expBr    []bool

	// eQts[class][nodeID] is the exponentiated matrix as a
	// row-major array.
	eQts [][][]float64
}

// NewBaseModel creates a new BaseModel.
func NewBaseModel(data *Data, model Model) (bm *BaseModel) {
	nclass := model.GetNClass()
	bm = &BaseModel{
		Model:  model,
		data:   data,
		qs:     make([]*EMatrix, nclass),
		prop:   make([]float64, nclass),
		nclass: nclass,
		expBr:  make([]bool, data.Tree.NNodes()),
	}
	data.Tree.NodeOrder()
	return
}

// Copy creates a copy of the BaseModel. The model implementation has
// to be replaced by the caller.
func (m *BaseModel) Copy() (newM *BaseModel) {
	newM = NewBaseModel(m.data, m.Model)
	copy(newM.prop, m.prop)
	return
}

// GetData returns the underlying data.
func (m *BaseModel) GetData() *Data {
	return m.data
}

// GetFloatParameters returns all the optimization parameters.
func (m *BaseModel) GetFloatParameters() optimize.FloatParameters {
	return m.parameters
}

// setupParameters deletes all the parameters and adds them again.
func (m *BaseModel) setupParameters() {
	m.parameters = nil
	m.Model.addParameters(optimize.BasicFloatParameterGenerator)
}

// expBranch exponentiates all class matrices for a single branch.
func (m *BaseModel) expBranch(br int) {
	node := m.data.Tree.Nodes()[br]
	for class := range m.qs {
		var oclass int
		for oclass = class - 1; oclass >= 0; oclass-- {
			if m.qs[class] == m.qs[oclass] {
				m.eQts[class][br] = m.eQts[oclass][br]
				break
			}
		}
		if oclass < 0 {
			p, err := m.qs[class].Exp(node.BranchLength)
			if err != nil {
				panic("error exponentiating matrix: " + err.Error())
			}
			m.eQts[class][br] = p
		}
	}
	m.expBr[br] = true
}

// expBranches exponentiates all the branches in the tree.
func (m *BaseModel) expBranches() {
	if m.eQts == nil {
		m.eQts = make([][][]float64, m.nclass)
		for class := range m.eQts {
			m.eQts[class] = make([][]float64, m.data.Tree.NNodes())
		}
	}
	for _, node := range m.data.Tree.Nodes() {
		if node.IsRoot() {
			continue
		}
		m.expBranch(node.ID)
	}
	m.expAllBr = true
}

// Likelihood computes the log-likelihood of the data.
func (m *BaseModel) Likelihood() (lnL float64) {
	log.Debugf("x=%v", m.parameters.Values(nil))
	if !m.expAllBr {
		m.expBranches()
	} else {
		for _, node := range m.data.Tree.Nodes() {
			if node.IsRoot() {
				continue
			}
			if !m.expBr[node.ID] {
				m.expBranch(node.ID)
			}
		}
	}

	nStates := m.data.NStates()
	plh := make([][]float64, m.data.Tree.NNodes())
	for i := range plh {
		plh[i] = make([]float64, nStates)
	}

	for pos := 0; pos < m.data.NPos(); pos++ {
		res := 0.0
		for class, p := range m.prop {
			if p <= smallProp {
				continue
			}
			res += m.fullSubL(class, pos, plh) * p
		}
		lnL += math.Log(res)
	}
	if math.IsNaN(lnL) {
		lnL = math.Inf(-1)
	}
	log.Debugf("L=%v", lnL)
	return
}

// fullSubL calculates the likelihood for the given rate class and
// position.
func (m *BaseModel) fullSubL(class, pos int, plh [][]float64) (res float64) {
	nStates := m.data.NStates()

	for node := range m.data.Tree.Terminals() {
		obs := m.data.obs[node.LeafID][pos]
		for l := 0; l < nStates; l++ {
			if obs < 0 || l == obs {
				plh[node.ID][l] = 1
			} else {
				plh[node.ID][l] = 0
			}
		}
	}

	for _, node := range m.data.Tree.NodeOrder() {
		for l1 := 0; l1 < nStates; l1++ {
			l := 1.0
			for _, child := range node.ChildNodes() {
				// get the row
				q := m.eQts[class][child.ID][l1*nStates:]
				cplh := plh[child.ID]
				s := 0.0
				for l2 := 0; l2 < nStates; l2++ {
					s += q[l2] * cplh[l2]
				}
				l *= s
			}
			plh[node.ID][l1] = l
		}

		if node.IsRoot() {
			for l := 0; l < nStates; l++ {
				res += m.data.freq[l] * plh[node.ID][l]
			}
			break
		}
	}
	return
}
