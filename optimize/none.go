package optimize

// None is an optimizer which computes the initial likelihood and
// exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes the initial likelihood
// only.
func NewNone() *None {
	return &None{
		BaseOptimizer: BaseOptimizer{
			method:    "none",
			repPeriod: 10,
		},
	}
}

// Run computes the likelihood.
func (n *None) Run(iterations int) {
	n.SaveStart()
	n.PrintHeader()
	n.PrintLine(n.parameters, n.startL, 1)
	n.PrintFinal(n.parameters)
	n.SaveCheckpoint(true)
}
