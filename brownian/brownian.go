// Package brownian implements maximum-likelihood ancestral state
// reconstruction of a continuous trait under Brownian motion.
package brownian

import (
	"math"

	"github.com/op/go-logging"

	"github.com/evolab/anceps/evoerr"
	"github.com/evolab/anceps/tree"
)

// log is the package logging variable.
var log = logging.MustGetLogger("brownian")

// BM pairs a tree with continuous observations for its leaves.
type BM struct {
	tree *tree.Tree
	// obs[leafID] is the observed value.
	obs []float64
}

// New matches a tree with a leaf to value map. Every leaf has to have
// a finite observation.
func New(t *tree.Tree, values map[string]float64) (*BM, error) {
	if err := t.Validate(); err != nil {
		return nil, evoerr.NewDataError("invalid tree: %v", err)
	}
	bm := &BM{
		tree: t,
		obs:  make([]float64, t.NLeaves()),
	}
	for node := range t.Terminals() {
		v, ok := values[node.Name]
		if !ok {
			return nil, evoerr.NewDataError("no observation for leaf <%s>", node.Name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, evoerr.NewDataError("non-finite observation for leaf <%s>", node.Name)
		}
		bm.obs[node.LeafID] = v
	}
	return bm, nil
}

// Reconstruction stores the reconstructed node values.
type Reconstruction struct {
	// Tree is the tree the values belong to.
	Tree *tree.Tree
	// Values[nodeID] is the estimate; leaves keep their
	// observations.
	Values []float64
}

// Reconstruct estimates the ancestral values. The first pass combines
// the subtree below every node by edge-length weighted averaging, the
// second pass reconciles every estimate with the information outside
// the subtree.
func (bm *BM) Reconstruct() *Reconstruction {
	t := bm.tree
	nNodes := t.NNodes()

	value := make([]float64, nNodes)
	// extra is the variance of the below estimate, expressed as
	// extra branch length.
	extra := make([]float64, nNodes)

	for node := range t.Terminals() {
		value[node.ID] = bm.obs[node.LeafID]
	}

	// post-order: combine children
	for _, node := range t.NodeOrder() {
		sumW := 0.0
		sumWV := 0.0
		exact := 0
		exactV := 0.0
		for _, child := range node.ChildNodes() {
			d := child.BranchLength + extra[child.ID]
			if d <= 0 {
				exact++
				exactV += value[child.ID]
				continue
			}
			w := 1 / d
			sumW += w
			sumWV += w * value[child.ID]
		}
		if exact > 0 {
			// a zero-length path pins the node value
			value[node.ID] = exactV / float64(exact)
			extra[node.ID] = 0
			continue
		}
		value[node.ID] = sumWV / sumW
		extra[node.ID] = 1 / sumW
	}

	final := make([]float64, nNodes)
	copy(final, value)
	// outside information per internal node
	outValue := make([]float64, nNodes)
	outLen := make([]float64, nNodes)

	// pre-order: reconcile with the rest of the tree; the root
	// keeps its below estimate
	order := t.NodeOrder()
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		for _, child := range node.ChildNodes() {
			if child.IsTerminal() {
				continue
			}
			sumW := 0.0
			sumWV := 0.0
			exact := 0
			exactV := 0.0
			if !node.IsRoot() {
				if outLen[node.ID] <= 0 {
					exact++
					exactV += outValue[node.ID]
				} else {
					w := 1 / outLen[node.ID]
					sumW += w
					sumWV += w * outValue[node.ID]
				}
			}
			for _, sib := range node.ChildNodes() {
				if sib == child {
					continue
				}
				d := sib.BranchLength + extra[sib.ID]
				if d <= 0 {
					exact++
					exactV += value[sib.ID]
					continue
				}
				sumW += 1 / d
				sumWV += value[sib.ID] / d
			}
			if exact > 0 {
				// a zero-length path pins the outside estimate
				outValue[child.ID] = exactV / float64(exact)
				outLen[child.ID] = child.BranchLength
			} else {
				if sumW <= 0 {
					// single child of the root: no outside
					// information
					continue
				}
				outValue[child.ID] = sumWV / sumW
				outLen[child.ID] = child.BranchLength + 1/sumW
			}

			if extra[child.ID] <= 0 {
				final[child.ID] = value[child.ID]
				continue
			}
			if outLen[child.ID] <= 0 {
				final[child.ID] = outValue[child.ID]
				continue
			}
			wb := 1 / extra[child.ID]
			wo := 1 / outLen[child.ID]
			final[child.ID] = (wb*value[child.ID] + wo*outValue[child.ID]) / (wb + wo)
		}
	}

	// a single-child node takes the value of its child; post-order
	// resolves chains bottom-up
	for _, node := range order {
		if len(node.ChildNodes()) == 1 {
			final[node.ID] = final[node.ChildNodes()[0].ID]
		}
	}

	log.Debugf("root estimate %v", final[t.Node.ID])

	return &Reconstruction{
		Tree:   t,
		Values: final,
	}
}

// RampPoint is a single interpolated point of an edge trace.
type RampPoint struct {
	// Time is the distance from the root.
	Time float64 `json:"time"`
	// Value is the interpolated trait value.
	Value float64 `json:"value"`
}

// Ramp returns a linear interpolation along every edge, indexed by the
// child node ID (nil for the root). Endpoints equal the node
// estimates.
func (r *Reconstruction) Ramp(steps int) [][]RampPoint {
	if steps < 1 {
		steps = 1
	}
	t := r.Tree
	nNodes := t.NNodes()

	depth := make([]float64, nNodes)
	for node := range t.Walker(nil) {
		if node.IsRoot() {
			continue
		}
		depth[node.ID] = depth[node.Parent.ID] + node.BranchLength
	}

	ramps := make([][]RampPoint, nNodes)
	for node := range t.Walker(nil) {
		if node.IsRoot() {
			continue
		}
		p := node.Parent
		trace := make([]RampPoint, steps+1)
		for i := 0; i <= steps; i++ {
			f := float64(i) / float64(steps)
			trace[i] = RampPoint{
				Time:  depth[p.ID] + f*node.BranchLength,
				Value: r.Values[p.ID] + f*(r.Values[node.ID]-r.Values[p.ID]),
			}
		}
		ramps[node.ID] = trace
	}
	return ramps
}
