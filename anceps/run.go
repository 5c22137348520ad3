package main

import (
	"bufio"
	"fmt"
	"math"
	"os"

	bolt "go.etcd.io/bbolt"

	"github.com/evolab/anceps/brownian"
	"github.com/evolab/anceps/checkpoint"
	"github.com/evolab/anceps/dmodel"
	"github.com/evolab/anceps/evoerr"
	"github.com/evolab/anceps/optimize"
	"github.com/evolab/anceps/trait"
	"github.com/evolab/anceps/tree"
)

// lastLine returns the last line of a file content.
func lastLine(fn string) (line string, err error) {
	f, err := os.Open(fn)
	if err != nil {
		return line, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line = scanner.Text()
	}
	err = scanner.Err()
	return line, err
}

// getOptimizerFromString returns an optimizer from a string.
func getOptimizerFromString(method string) (optimize.Optimizer, error) {
	switch method {
	case "lbfgsb":
		return optimize.NewLBFGSB(), nil
	case "simplex":
		return optimize.NewDS(), nil
	case "mh":
		chain := optimize.NewMH(false, 0)
		chain.AccPeriod = *accept
		return chain, nil
	case "annealing":
		chain := optimize.NewMH(true, 0)
		chain.AccPeriod = *accept
		return chain, nil
	case "none":
		return optimize.NewNone(), nil
	}
	return nil, fmt.Errorf("Unknown optimization method: %s", method)
}

// run dispatches the analysis by model name.
func run() (summary *RunSummary) {
	summary = &RunSummary{}

	treeFile, err := os.Open(*treeFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer treeFile.Close()

	t, err := tree.ParseNewick(treeFile)
	if err != nil {
		log.Fatal(err)
	}
	log.Debugf("intree=%s", t)
	log.Infof("Read a tree with %d leaves", t.NLeaves())

	traitFile, err := os.Open(*traitFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer traitFile.Close()

	table, err := trait.ReadTable(traitFile)
	if err != nil {
		log.Fatal(err)
	}

	column := *traitName
	if column == "" {
		column = table.Columns()[0]
	}
	if !table.HasColumn(column) {
		log.Fatalf("No trait <%s> in the table", column)
	}
	log.Infof("Analyzing trait <%s>", column)

	switch *model {
	case "BM":
		if *compare {
			log.Fatal("--compare needs a discrete model (ER or ARD)")
		}
		summary.Brownian = runBrownian(t, table, column)
	case "ER", "ARD":
		data, err := dmodel.NewData(t, table, column)
		if err != nil {
			log.Fatal(err)
		}
		if err = data.SetFrequency(*freq); err != nil {
			log.Fatal(err)
		}
		log.Infof("State alphabet: %v", data.States)
		if *compare {
			summary.Compare = runCompare(data, column)
		} else {
			summary.Discrete = fitVariant(*model, data, column, *outF)
		}
	default:
		log.Fatalf("Unknown model specification <%s>", *model)
	}
	return
}

// runBrownian reconstructs a continuous trait under Brownian motion.
func runBrownian(t *tree.Tree, table *trait.Table, column string) *BrownianSummary {
	log.Info("Using Brownian motion model")
	values, err := table.Continuous(column)
	if err != nil {
		log.Fatal(err)
	}

	bm, err := brownian.New(t, values)
	if err != nil {
		log.Fatal(err)
	}
	rec := bm.Reconstruct()

	log.Noticef("Root estimate: %f", rec.Values[t.Node.ID])

	summary := &BrownianSummary{
		Trait:     column,
		Tree:      t.String(),
		Root:      rec.Values[t.Node.ID],
		Estimates: make([]NodeEstimate, 0, t.NNodes()),
	}
	for _, node := range t.Nodes() {
		summary.Estimates = append(summary.Estimates, NodeEstimate{
			NodeID: node.ID,
			Name:   node.Name,
			Value:  rec.Values[node.ID],
		})
		if !node.IsTerminal() {
			log.Infof("Node #%d: %f", node.ID, rec.Values[node.ID])
		}
	}
	if *steps > 0 {
		summary.Ramp = rec.Ramp(*steps)
	}
	return summary
}

// fitVariant fits a single discrete model variant and computes the
// information criteria and the ancestral states.
func fitVariant(variant string, data *dmodel.Data, column, trajFileName string) *DiscreteSummary {
	log.Infof("Using %s model", variant)
	m, err := dmodel.New(variant, data, *ncat)
	if err != nil {
		log.Fatal(err)
	}
	par := m.GetFloatParameters()
	log.Infof("Model has %d parameters.", len(par))

	if *startF != "" {
		l, err := lastLine(*startF)
		if err == nil {
			err = par.ReadLine(l)
		}
		if err != nil {
			log.Debug("Reading start file as JSON")
			err2 := par.ReadFromJSON(*startF)
			// startF is neither trajectory nor correct JSON
			if err2 != nil {
				log.Error("Error reading start position from JSON:", err2)
				log.Fatal("Error reading start position from trajectory file:", err)
			}
		}
		if !par.InRange() {
			log.Fatal("Initial parameters are not in the range")
		}
	}

	var cp *checkpoint.IO
	if *checkpointF != "" {
		db, err := bolt.Open(*checkpointF, 0666, nil)
		if err != nil {
			log.Fatal("Error opening checkpoint file:", err)
		}
		defer db.Close()
		cp = checkpoint.NewIO(db, []byte(variant+":"+column), *checkpointDT)
		saved, err := cp.Load()
		if err != nil {
			log.Fatal("Error reading checkpoint:", err)
		}
		if saved != nil {
			par.SetFromMap(saved.Parameters)
		}
	}

	f := os.Stdout
	if trajFileName != "" {
		f, err = os.Create(trajFileName)
		if err != nil {
			log.Fatal("Error creating trajectory file:", err)
		}
		defer f.Close()
	}

	opt, err := getOptimizerFromString(*method)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Using %s optimization.", *method)

	opt.SetOptimizable(m)
	opt.SetTrajectoryOutput(f)
	opt.SetReportPeriod(*report)
	if cp != nil {
		opt.SetCheckpointIO(cp)
	}
	opt.WatchSignals(os.Interrupt)

	opt.Run(*iterations)

	maxL := opt.GetMaxLikelihood()
	if math.IsNaN(maxL) || math.IsInf(maxL, 0) {
		log.Fatal(evoerr.NewConvergenceError(*method, "non-finite maximum likelihood %v", maxL))
	}
	maxLPar := opt.GetMaxLikelihoodParameters()
	par.SetFromMap(maxLPar)

	// k counts every free parameter, the gamma shape included when
	// rate variation is on
	k := len(par)
	n := data.Tree.NLeaves()
	aic := dmodel.AIC(maxL, k)
	aicc := dmodel.AICc(maxL, k, n)

	log.Noticef("%s: lnL=%f, AIC=%f", variant, maxL, aic)
	if math.IsInf(aicc, +1) {
		log.Noticef("%s: AICc undefined (n=%d <= k+1=%d)", variant, n, k+1)
	} else {
		log.Noticef("%s: AICc=%f", variant, aicc)
	}

	summary := &DiscreteSummary{
		Model:       variant,
		Trait:       column,
		States:      data.States,
		NParameters: k,
		MaxLnL:      maxL,
		AIC:         aic,
		RateMatrix:  m.RateMatrix(),
		Optimizer:   opt.Summary(),
	}
	if !math.IsInf(aicc, +1) {
		summary.AICc = &aicc
	}

	if !*noFinal {
		anc := m.Ancestral()
		summary.Ancestral = anc
		for _, node := range data.Tree.NodeOrder() {
			probs := anc.Probs[0][node.ID]
			best := 0
			for s := range probs {
				if probs[s] > probs[best] {
					best = s
				}
			}
			log.Infof("Node #%d: %s (p=%.3f)", node.ID, anc.States[best], probs[best])
		}
	}
	return summary
}

// runCompare fits both rate matrix variants and compares them by
// AICc.
func runCompare(data *dmodel.Data, column string) *CompareSummary {
	erTraj := *outF
	ardTraj := *outF
	if *outF != "" {
		erTraj = *outF + ".er"
		ardTraj = *outF + ".ard"
	}
	er := fitVariant("ER", data, column, erTraj)
	ard := fitVariant("ARD", data, column, ardTraj)

	erAICc := math.Inf(+1)
	if er.AICc != nil {
		erAICc = *er.AICc
	}
	ardAICc := math.Inf(+1)
	if ard.AICc != nil {
		ardAICc = *ard.AICc
	}

	// ties (including both undefined) go to the simpler model
	best := "ER"
	if ardAICc < erAICc {
		best = "ARD"
	}
	log.Noticef("Best model by AICc: %s", best)

	return &CompareSummary{
		ER:   er,
		ARD:  ard,
		Best: best,
	}
}
