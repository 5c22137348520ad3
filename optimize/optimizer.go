// Package optimize provides likelihood maximization and sampling for
// models exposing float parameters.
package optimize

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"

	"github.com/op/go-logging"

	"github.com/evolab/anceps/checkpoint"
)

// log is the package logging variable.
var log = logging.MustGetLogger("optimize")

// Optimizable is something which can be optimized by an Optimizer.
type Optimizable interface {
	// GetFloatParameters returns the optimization parameters.
	GetFloatParameters() FloatParameters
	// Copy returns an independent copy sharing the underlying data.
	Copy() Optimizable
	// Likelihood computes the log-likelihood for the current
	// parameter values.
	Likelihood() float64
}

// Optimizer is a maximum-likelihood optimizer or a sampler.
type Optimizer interface {
	// SetOptimizable sets the model to optimize.
	SetOptimizable(Optimizable)
	// SetTrajectoryOutput sets a writer for the parameter
	// trajectory (no output if nil).
	SetTrajectoryOutput(io.Writer)
	// SetReportPeriod sets the number of iterations between
	// trajectory lines.
	SetReportPeriod(int)
	// SetCheckpointIO enables periodic checkpoint saving.
	SetCheckpointIO(*checkpoint.IO)
	// WatchSignals makes the optimizer stop gracefully on a
	// signal.
	WatchSignals(...os.Signal)
	// Run runs optimization for up to the given number of
	// iterations.
	Run(iterations int)
	// GetMaxLikelihood returns the maximum log-likelihood found.
	GetMaxLikelihood() float64
	// GetMaxLikelihoodParameters returns the parameter values of
	// the maximum likelihood point.
	GetMaxLikelihoodParameters() map[string]float64
	// Summary returns the run summary.
	Summary() Summary
}

// Summary stores an optimizer run summary for reporting.
type Summary struct {
	// Method is the optimization method name.
	Method string `json:"method"`
	// Iterations is the number of iterations performed.
	Iterations int `json:"iterations"`
	// LikelihoodCalls is the number of likelihood function calls.
	LikelihoodCalls int `json:"likelihoodCalls"`
	// MaxLnL is the maximum log-likelihood found.
	MaxLnL float64 `json:"maxLnL"`
	// MaxLParameters are the parameter values at the maximum.
	MaxLParameters map[string]float64 `json:"maxLParameters"`
}

// BaseOptimizer implements the methods shared by all the optimizers.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	method     string
	i          int
	calls      int
	startL     float64
	maxL       float64
	maxLPar    []float64
	repPeriod  int
	sig        chan os.Signal
	trajF      io.Writer
	cp         *checkpoint.IO
	// Quiet disables the final result logging.
	Quiet bool
}

// SetOptimizable sets the model to optimize.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
	o.maxL = math.Inf(-1)
}

// SetTrajectoryOutput sets a writer for the parameter trajectory.
func (o *BaseOptimizer) SetTrajectoryOutput(w io.Writer) {
	o.trajF = w
}

// SetCheckpointIO enables periodic checkpoint saving.
func (o *BaseOptimizer) SetCheckpointIO(cp *checkpoint.IO) {
	o.cp = cp
}

// WatchSignals makes the optimizer stop gracefully on a signal.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// SetReportPeriod sets the number of iterations between trajectory
// lines; values below 1 are clamped to 1.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	if period < 1 {
		period = 1
	}
	o.repPeriod = period
}

// SaveStart computes the starting likelihood and initializes the
// maximum.
func (o *BaseOptimizer) SaveStart() {
	o.startL = o.Likelihood()
	o.calls++
	if o.startL > o.maxL {
		o.maxL = o.startL
		o.maxLPar = o.parameters.Values(o.maxLPar)
	}
}

// PrintHeader writes the trajectory header.
func (o *BaseOptimizer) PrintHeader() {
	if o.trajF != nil {
		fmt.Fprintf(o.trajF, "iteration\tlikelihood\t%s\n", o.parameters.NamesString())
	}
}

// PrintLine writes a single trajectory line if the iteration matches
// the period.
func (o *BaseOptimizer) PrintLine(par FloatParameters, l float64, period int) {
	if o.trajF != nil && o.i%period == 0 {
		fmt.Fprintf(o.trajF, "%d\t%f\t%s\n", o.i, l, par.ValuesString())
	}
}

// PrintFinal logs the final parameter values.
func (o *BaseOptimizer) PrintFinal(par FloatParameters) {
	if !o.Quiet {
		for _, p := range par {
			log.Noticef("%s=%v", p.Name(), p.Get())
		}
	}
}

// UpdateMax updates the maximum likelihood value if the new one is
// better.
func (o *BaseOptimizer) UpdateMax(par FloatParameters, l float64) {
	if l > o.maxL {
		o.maxL = l
		o.maxLPar = par.Values(o.maxLPar)
	}
}

// SaveCheckpoint saves a checkpoint if checkpointing is enabled and
// the last save is old enough (or final is true).
func (o *BaseOptimizer) SaveCheckpoint(final bool) {
	if o.cp == nil {
		return
	}
	if !final && !o.cp.Old() {
		return
	}
	data := checkpoint.Data{
		Parameters: o.GetMaxLikelihoodParameters(),
		Likelihood: o.maxL,
		Iter:       o.i,
		Final:      final,
	}
	// errors are logged by the checkpoint package
	_ = o.cp.Save(&data)
}

// GetMaxLikelihood returns the maximum log-likelihood found.
func (o *BaseOptimizer) GetMaxLikelihood() float64 {
	return o.maxL
}

// GetMaxLikelihoodParameters returns the parameter values of the
// maximum likelihood point.
func (o *BaseOptimizer) GetMaxLikelihoodParameters() map[string]float64 {
	res := make(map[string]float64, len(o.parameters))
	if o.maxLPar == nil {
		for _, par := range o.parameters {
			res[par.Name()] = par.Get()
		}
		return res
	}
	for i, par := range o.parameters {
		res[par.Name()] = o.maxLPar[i]
	}
	return res
}

// Summary returns the run summary.
func (o *BaseOptimizer) Summary() Summary {
	return Summary{
		Method:          o.method,
		Iterations:      o.i,
		LikelihoodCalls: o.calls,
		MaxLnL:          o.maxL,
		MaxLParameters:  o.GetMaxLikelihoodParameters(),
	}
}
