package main

import (
	"github.com/evolab/anceps/brownian"
	"github.com/evolab/anceps/dmodel"
	"github.com/evolab/anceps/optimize"
)

// CallSummary stores information about the program invocation.
type CallSummary struct {
	// Version stores anceps version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

// NodeEstimate is a reconstructed value for a single node.
type NodeEstimate struct {
	// NodeID identifies the node in the tree.
	NodeID int `json:"nodeID"`
	// Name is the leaf label (empty for internal nodes).
	Name string `json:"name,omitempty"`
	// Value is the estimate (leaves keep their observations).
	Value float64 `json:"value"`
}

// BrownianSummary stores the result of a continuous reconstruction.
type BrownianSummary struct {
	// Trait is the analyzed trait column.
	Trait string `json:"trait"`
	// Tree is the tree in Newick notation.
	Tree string `json:"tree"`
	// Root is the root estimate.
	Root float64 `json:"root"`
	// Estimates are the per-node estimates.
	Estimates []NodeEstimate `json:"estimates"`
	// Ramp is a per-edge linear interpolation indexed by the child
	// node ID (for plotting).
	Ramp [][]brownian.RampPoint `json:"ramp,omitempty"`
}

// DiscreteSummary stores the result of a discrete model fit.
type DiscreteSummary struct {
	// Model is the rate matrix variant.
	Model string `json:"model"`
	// Trait is the analyzed trait column.
	Trait string `json:"trait"`
	// States is the state alphabet.
	States []string `json:"states"`
	// NParameters is the number of free parameters.
	NParameters int `json:"nParameters"`
	// MaxLnL is the maximum log-likelihood.
	MaxLnL float64 `json:"maxLnL"`
	// AIC is the Akaike information criterion.
	AIC float64 `json:"aic"`
	// AICc is the corrected AIC; +Inf cannot be encoded as JSON, so
	// the field is omitted when the correction is undefined.
	AICc *float64 `json:"aicc,omitempty"`
	// RateMatrix is the fitted rate matrix in row-major order.
	RateMatrix []float64 `json:"rateMatrix"`
	// Optimizer is the optimizer run summary.
	Optimizer optimize.Summary `json:"optimizer"`
	// Ancestral stores the marginal ancestral state probabilities.
	Ancestral *dmodel.AncestralStates `json:"ancestral,omitempty"`
}

// CompareSummary stores an ER vs ARD comparison.
type CompareSummary struct {
	// ER is the equal-rates fit.
	ER *DiscreteSummary `json:"er"`
	// ARD is the all-rates-different fit.
	ARD *DiscreteSummary `json:"ard"`
	// Best is the variant preferred by AICc.
	Best string `json:"best"`
}

// RunSummary stores the whole run summary for the JSON output.
type RunSummary struct {
	CallSummary
	// Brownian is the continuous reconstruction result.
	Brownian *BrownianSummary `json:"brownian,omitempty"`
	// Discrete is the discrete model fit result.
	Discrete *DiscreteSummary `json:"discrete,omitempty"`
	// Compare is the ER vs ARD comparison result.
	Compare *CompareSummary `json:"compare,omitempty"`
}
