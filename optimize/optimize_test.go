package optimize

import (
	"bytes"
	"math"
	"math/rand"
	"testing"
)

// paraboloid has a single likelihood maximum at (2, -1).
type paraboloid struct {
	x, y       float64
	parameters FloatParameters
}

func newParaboloid() *paraboloid {
	p := &paraboloid{}
	p.addParameters()
	return p
}

func (p *paraboloid) addParameters() {
	xPar := NewBasicFloatParameter(&p.x, "x")
	xPar.SetMin(-100)
	xPar.SetMax(100)
	yPar := NewBasicFloatParameter(&p.y, "y")
	yPar.SetMin(-100)
	yPar.SetMax(100)
	p.parameters.Append(xPar)
	p.parameters.Append(yPar)
}

func (p *paraboloid) GetFloatParameters() FloatParameters {
	return p.parameters
}

func (p *paraboloid) Copy() Optimizable {
	newP := &paraboloid{x: p.x, y: p.y}
	newP.addParameters()
	return newP
}

func (p *paraboloid) Likelihood() float64 {
	return -(p.x-2)*(p.x-2) - (p.y+1)*(p.y+1)
}

func TestDS(tst *testing.T) {
	opt := NewDS()
	opt.Quiet = true
	opt.SetOptimizable(newParaboloid())
	opt.Run(10000)

	if math.Abs(opt.GetMaxLikelihood()) > 1e-3 {
		tst.Error("Unexpected maximum likelihood:", opt.GetMaxLikelihood())
	}
	par := opt.GetMaxLikelihoodParameters()
	if math.Abs(par["x"]-2) > 1e-2 {
		tst.Error("Unexpected x:", par["x"])
	}
	if math.Abs(par["y"]+1) > 1e-2 {
		tst.Error("Unexpected y:", par["y"])
	}
}

func TestAnnealing(tst *testing.T) {
	rand.Seed(1)
	opt := NewMH(true, 0)
	opt.Quiet = true
	opt.SetOptimizable(newParaboloid())
	opt.Run(10000)

	par := opt.GetMaxLikelihoodParameters()
	if math.Abs(par["x"]-2) > 0.5 {
		tst.Error("Unexpected x:", par["x"])
	}
	if math.Abs(par["y"]+1) > 0.5 {
		tst.Error("Unexpected y:", par["y"])
	}
	if opt.GetMaxLikelihood() > 0 {
		tst.Error("Likelihood cannot exceed the maximum:", opt.GetMaxLikelihood())
	}
}

func TestNone(tst *testing.T) {
	opt := NewNone()
	opt.Quiet = true
	model := newParaboloid()
	opt.SetOptimizable(model)
	opt.Run(1)
	expected := model.Likelihood()
	if opt.GetMaxLikelihood() != expected {
		tst.Error("Unexpected likelihood:", opt.GetMaxLikelihood())
	}
	s := opt.Summary()
	if s.Method != "none" {
		tst.Error("Unexpected method:", s.Method)
	}
}

func TestZeroReportPeriod(tst *testing.T) {
	var traj bytes.Buffer
	opt := NewMH(false, 0)
	opt.Quiet = true
	opt.SetReportPeriod(0)
	opt.SetTrajectoryOutput(&traj)
	opt.SetOptimizable(newParaboloid())
	opt.Run(3)

	if traj.Len() == 0 {
		tst.Error("Expected a trajectory with every iteration reported")
	}
}

func TestReadFloats(tst *testing.T) {
	v, err := ReadFloats("1 2.5\t-3")
	if err != nil {
		tst.Error("Unexpected error:", err)
	}
	if len(v) != 3 || v[0] != 1 || v[1] != 2.5 || v[2] != -3 {
		tst.Error("Unexpected values:", v)
	}
	if _, err = ReadFloats("1 two"); err == nil {
		tst.Error("Expected an error for a non-numeric value")
	}
}

func TestSetFromMap(tst *testing.T) {
	model := newParaboloid()
	par := model.GetFloatParameters()
	par.SetFromMap(map[string]float64{"x": 3, "unknown": 7})
	if model.x != 3 {
		tst.Error("Unexpected x:", model.x)
	}
	if model.y != 0 {
		tst.Error("Unexpected y:", model.y)
	}
}

func TestPriors(tst *testing.T) {
	u := UniformPrior(0, 2, true, true)
	if math.Abs(u(1)-math.Log(0.5)) > 1e-10 {
		tst.Error("Unexpected uniform prior density")
	}
	if !math.IsInf(u(3), -1) {
		tst.Error("Out of range value should have zero density")
	}
	e := ExponentialPrior(2, false)
	if math.Abs(e(1)-(math.Log(2)-2)) > 1e-10 {
		tst.Error("Unexpected exponential prior density")
	}
	g := GammaPrior(1, 0.5, false)
	// gamma with shape=1 is exponential with rate=1/scale
	if math.Abs(g(1)-e(1)) > 1e-10 {
		tst.Error("Gamma and exponential priors should match")
	}
}
