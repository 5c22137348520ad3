package dmodel

// AncestralStates stores marginal posterior state probabilities for
// the internal nodes of the tree.
type AncestralStates struct {
	// States is the state alphabet.
	States []string `json:"states"`
	// Probs[pos][nodeID] is the posterior distribution over states;
	// nil for leaves.
	Probs [][][]float64 `json:"probs"`
}

// ancestral computes marginal ancestral state probabilities for the
// current parameter values. Matrices have to be up to date.
func (m *BaseModel) ancestral() *AncestralStates {
	if !m.expAllBr {
		m.expBranches()
	}

	t := m.data.Tree
	nNodes := t.NNodes()
	nStates := m.data.NStates()

	anc := &AncestralStates{
		States: m.data.States,
		Probs:  make([][][]float64, m.data.NPos()),
	}

	dlh := make([][][]float64, m.nclass)
	ulh := make([][][]float64, m.nclass)
	for class := 0; class < m.nclass; class++ {
		dlh[class] = make([][]float64, nNodes)
		ulh[class] = make([][]float64, nNodes)
		for i := 0; i < nNodes; i++ {
			dlh[class][i] = make([]float64, nStates)
			ulh[class][i] = make([]float64, nStates)
		}
	}

	for pos := 0; pos < m.data.NPos(); pos++ {
		for class := 0; class < m.nclass; class++ {
			m.downPass(class, pos, dlh[class])
			m.upPass(class, dlh[class], ulh[class])
		}

		probs := make([][]float64, nNodes)
		for _, node := range t.NodeOrder() {
			p := make([]float64, nStates)
			total := 0.0
			for class := 0; class < m.nclass; class++ {
				if m.prop[class] <= smallProp {
					continue
				}
				for s := 0; s < nStates; s++ {
					v := m.prop[class] * dlh[class][node.ID][s] * ulh[class][node.ID][s]
					p[s] += v
					total += v
				}
			}
			if total > 0 {
				for s := range p {
					p[s] /= total
				}
			}
			probs[node.ID] = p
		}
		anc.Probs[pos] = probs
	}

	return anc
}

// downPass fills the conditional likelihoods of the subtrees (the
// pruning pass).
func (m *BaseModel) downPass(class, pos int, dlh [][]float64) {
	nStates := m.data.NStates()

	for node := range m.data.Tree.Terminals() {
		obs := m.data.obs[node.LeafID][pos]
		for l := 0; l < nStates; l++ {
			if obs < 0 || l == obs {
				dlh[node.ID][l] = 1
			} else {
				dlh[node.ID][l] = 0
			}
		}
	}

	for _, node := range m.data.Tree.NodeOrder() {
		for l1 := 0; l1 < nStates; l1++ {
			l := 1.0
			for _, child := range node.ChildNodes() {
				q := m.eQts[class][child.ID][l1*nStates:]
				cplh := dlh[child.ID]
				s := 0.0
				for l2 := 0; l2 < nStates; l2++ {
					s += q[l2] * cplh[l2]
				}
				l *= s
			}
			dlh[node.ID][l1] = l
		}
	}
}

// upPass fills the outside likelihoods: the probability of the rest of
// the data given the state of a node, root prior included.
func (m *BaseModel) upPass(class int, dlh, ulh [][]float64) {
	t := m.data.Tree
	nStates := m.data.NStates()
	order := t.NodeOrder()

	copy(ulh[t.Node.ID], m.data.freq)

	// reversed post-order is parent before children
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		for _, child := range node.ChildNodes() {
			if child.IsTerminal() {
				continue
			}
			culh := ulh[child.ID]
			for sc := 0; sc < nStates; sc++ {
				culh[sc] = 0
			}
			for sn := 0; sn < nStates; sn++ {
				// information from the siblings
				out := ulh[node.ID][sn]
				for _, sib := range node.ChildNodes() {
					if sib == child {
						continue
					}
					q := m.eQts[class][sib.ID][sn*nStates:]
					s := 0.0
					for l := 0; l < nStates; l++ {
						s += q[l] * dlh[sib.ID][l]
					}
					out *= s
				}
				q := m.eQts[class][child.ID][sn*nStates:]
				for sc := 0; sc < nStates; sc++ {
					culh[sc] += out * q[sc]
				}
			}
		}
	}
}
