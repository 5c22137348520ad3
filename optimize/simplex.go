package optimize

import (
	"math"
)

const (
	// TINY is the relative tolerance for simplex convergence.
	TINY = 1e-10
	// SMALL is the likelihood difference treated as no improvement
	// between restarts.
	SMALL = 1e-6
)

// DS is a downhill simplex (Nelder-Mead) optimizer with a restart
// after the first convergence.
type DS struct {
	delta      float64
	ftol       float64
	repeat     bool
	oldL       float64
	points     []Optimizable
	psum       []float64
	pointsPar  []FloatParameters
	l          []float64
	newOpt     Optimizable
	newPar     FloatParameters
	BaseOptimizer
}

// NewDS creates a new downhill simplex optimizer.
func NewDS() (ds *DS) {
	ds = &DS{
		delta: 1,
		ftol:  TINY,
		BaseOptimizer: BaseOptimizer{
			method:    "simplex",
			repPeriod: 10,
		},
	}
	return
}

// createSimplex creates n+1 model copies offset by delta in every
// dimension.
func (ds *DS) createSimplex(opt Optimizable, delta float64) {
	parameters := opt.GetFloatParameters()
	ds.points = make([]Optimizable, len(parameters)+1)
	ds.pointsPar = make([]FloatParameters, len(ds.points))
	ds.l = make([]float64, len(ds.points))
	ds.points[0] = opt
	ds.pointsPar[0] = parameters
	for i := 1; i < len(ds.points); i++ {
		point := opt.Copy()
		ds.points[i] = point
		ds.pointsPar[i] = point.GetFloatParameters()
	}
	for i := 0; i < len(parameters); i++ {
		parameter := ds.pointsPar[i+1][i]
		parameter.Set(parameter.Get() + delta)
	}
	for i := range ds.points {
		if ds.pointsPar[i].InRange() {
			ds.l[i] = ds.points[i].Likelihood()
			ds.calls++
		} else {
			ds.l[i] = math.Inf(-1)
		}
	}
	ds.newOpt = nil
	ds.newPar = nil
}

// SetOptimizable sets the model to optimize.
func (ds *DS) SetOptimizable(opt Optimizable) {
	ds.BaseOptimizer.SetOptimizable(opt)
	ds.createSimplex(opt, ds.delta)
}

func (ds *DS) calcPsum() {
	ds.psum = make([]float64, len(ds.pointsPar[0]))
	for i := range ds.psum {
		for _, parameters := range ds.pointsPar {
			ds.psum[i] += parameters[i].Get()
		}
	}
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the low point, tries it, and replaces the low point if
// the new point is better.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	if ds.newOpt == nil {
		ds.newOpt = ds.points[0].Copy()
		ds.newPar = ds.newOpt.GetFloatParameters()
	}
	ds.calcPsum()
	ndim := len(ds.newPar)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newPar[j].Set(ds.psum[j]*fac1 - ds.pointsPar[ilo][j].Get()*fac2)
	}
	var l float64
	if ds.newPar.InRange() {
		l = ds.newOpt.Likelihood()
		ds.calls++
	} else {
		l = math.Inf(-1)
	}
	if l > ds.l[ilo] {
		ds.points[ilo], ds.newOpt = ds.newOpt, ds.points[ilo]
		ds.pointsPar[ilo], ds.newPar = ds.newPar, ds.pointsPar[ilo]
		ds.l[ilo] = l
	}
	return l
}

// Run starts the optimization.
func (ds *DS) Run(iterations int) {
	// Lowest (worst), next-lowest and highest points.
	var ilo, ihi int
	var llo, lnlo, lhi float64
	ds.PrintHeader()
Iter:
	for ds.i = 1; ds.i <= iterations; ds.i++ {
		if ds.l[0] < ds.l[1] {
			ilo = 0
			ihi = 1
		} else {
			ilo = 1
			ihi = 0
		}
		llo = ds.l[ilo]
		lnlo = ds.l[ihi]
		lhi = ds.l[ihi]
		for i := 2; i < len(ds.points); i++ {
			if ds.l[i] >= lhi {
				lhi = ds.l[i]
				ihi = i
			}
			if ds.l[i] < llo {
				lnlo = llo
				llo = ds.l[i]
				ilo = i
			} else if ds.l[i] < lnlo {
				lnlo = ds.l[i]
			}
		}
		ds.UpdateMax(ds.pointsPar[ihi], lhi)
		if ds.i%ds.repPeriod == 0 {
			log.Debugf("%d: L=%f (%f)", ds.i, lhi, lhi-llo)
		}
		ds.PrintLine(ds.pointsPar[ihi], lhi, ds.repPeriod)
		ds.SaveCheckpoint(false)
		rtol := 2 * math.Abs(ds.l[ihi]-ds.l[ilo]) / (math.Abs(ds.l[ilo]) + math.Abs(ds.l[ihi]) + TINY)
		if rtol < ds.ftol {
			if ds.repeat && math.Abs(ds.oldL-lhi) < SMALL {
				break Iter
			}
			ds.repeat = true
			ds.oldL = lhi
			log.Info("converged. retrying")
			ds.createSimplex(ds.points[ihi], ds.delta)
			continue
		}
		l := ds.amotry(ilo, -1)
		switch {
		case l >= lhi:
			ds.amotry(ilo, 2)
		case l <= lnlo:
			lsave := llo
			l := ds.amotry(ilo, 0.5)
			if l <= lsave {
				// contract towards the best point
				for i, point := range ds.points {
					if i == ihi {
						continue
					}
					for j := range ds.pointsPar[i] {
						ds.pointsPar[i][j].Set(0.5 * (ds.pointsPar[i][j].Get() + ds.pointsPar[ihi][j].Get()))
					}
					if ds.pointsPar[i].InRange() {
						ds.l[i] = point.Likelihood()
						ds.calls++
					} else {
						ds.l[i] = math.Inf(-1)
					}
				}
			}
		}
		select {
		case s := <-ds.sig:
			log.Warningf("Received signal %v, exiting.", s)
			break Iter
		default:
		}
	}
	if ds.i > iterations {
		log.Warningf("Iterations exceeded (%d)", iterations)
	}

	if !ds.Quiet {
		log.Info("Finished downhill simplex")
		log.Noticef("Maximum likelihood: %v", ds.maxL)
		log.Infof("Likelihood function calls: %v", ds.calls)
		log.Infof("Parameter  names: %v", ds.pointsPar[ihi].NamesString())
		log.Infof("Parameter values: %v", ds.pointsPar[ihi].ValuesString())
	}
	ds.parameters.SetValues(ds.maxLPar)
	ds.PrintFinal(ds.parameters)
	ds.SaveCheckpoint(true)
}
