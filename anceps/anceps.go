/*

Anceps estimates ancestral trait values on a phylogenetic tree. A
continuous trait is reconstructed under Brownian motion, a discrete
trait is modeled by a continuous-time Markov chain with an equal-rates
(ER) or an all-rates-different (ARD) rate matrix.

The basic usage of anceps looks like this:

	anceps BM tree.nwk traits.tsv

, this will reconstruct the first trait column under Brownian motion.

A discrete model is fitted with a maximum-likelihood optimizer
(LBFGS-B by default):

	anceps ER tree.nwk traits.tsv --trait habit

The two rate matrix variants can be compared by their corrected Akaike
information criterion:

	anceps ER tree.nwk traits.tsv --trait habit --compare

To see all the options run:

	anceps -h

*/
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("anceps")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("anceps", "ancestral trait reconstruction on phylogenetic trees").Version(version)

	// model
	model = app.Arg("model", "model type (BM for Brownian motion, ER or ARD for a discrete trait)").Required().String()
	// input tree and traits
	treeFileName  = app.Arg("tree", "phylogenetic tree").Required().ExistingFile()
	traitFileName = app.Arg("traits", "tab-separated trait table").Required().ExistingFile()

	// model parameters
	traitName = app.Flag("trait", "trait column to analyze (first column by default)").String()
	freq      = app.Flag("freq", "root prior for the discrete models (F0 or FOBS)").Default("F0").String()
	ncat      = app.Flag("ncat", "number of categories for the gamma rate variation (no variation by default)").Default("1").Int()
	compare   = app.Flag("compare", "fit both ER and ARD and compare them by AICc").Bool()
	noFinal   = app.Flag("nofinal", "don't compute ancestral states after the fit").Bool()
	steps     = app.Flag("steps", "number of interpolation steps per edge for the continuous reconstruction").Default("10").Int()

	// optimizer parameters
	iterations = app.Flag("iter", "number of iterations").Default("10000").Int()
	report     = app.Flag("report", "report every N iterations").Default("10").Int()
	method     = app.Flag("method", "optimization method to use "+
		"(lbfgsb: limited-memory Broyden-Fletcher-Goldfarb-Shanno with bounding constraints, "+
		"simplex: downhill simplex, "+
		"annealing: simulated annealing, "+
		"mh: Metropolis-Hastings, "+
		"none: just compute likelihood, no optimization"+
		")").Default("lbfgsb").String()

	// mcmc parameters
	accept = app.Flag("accept", "report acceptance rate every N iterations").Default("200").Int()

	// technical
	seed = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()

	// input/output
	outLogF      = app.Flag("log", "write log to a file").String()
	outF         = app.Flag("out", "write optimization trajectory to a file").String()
	startF       = app.Flag("start", "read start position from the trajectory or JSON file").ExistingFile()
	checkpointF  = app.Flag("checkpoint", "checkpoint database file").String()
	checkpointDT = app.Flag("checkpointdt", "minimum number of seconds between checkpoint saves").Default("30").Float64()
	logLevel     = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "anceps")
	logging.SetLevel(level, "optimize")
	logging.SetLevel(level, "dmodel")
	logging.SetLevel(level, "brownian")
	logging.SetLevel(level, "checkpoint")

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	rand.Seed(*seed)

	startTime := time.Now()
	summary := run()
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Seed = *seed
	summary.TotalTime = time.Since(startTime).Seconds()

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
