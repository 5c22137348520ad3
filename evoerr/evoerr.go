// Package evoerr provides the error taxonomy shared by the analyses.
// All three kinds are terminal for the requested analysis: the caller
// has to fix the input and retry, no partial results are produced.
package evoerr

import "fmt"

// DataError indicates invalid input data: a trait vector not matching
// the tree leaves, a malformed tree or table, a negative branch
// length.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string {
	return "data error: " + e.Msg
}

// NewDataError creates a DataError from a format string.
func NewDataError(format string, a ...interface{}) *DataError {
	return &DataError{Msg: fmt.Sprintf(format, a...)}
}

// ConvergenceError indicates that the numerical optimizer failed to
// reach a finite-likelihood optimum.
type ConvergenceError struct {
	Method string
	Msg    string
}

func (e *ConvergenceError) Error() string {
	if e.Method != "" {
		return "convergence error (" + e.Method + "): " + e.Msg
	}
	return "convergence error: " + e.Msg
}

// NewConvergenceError creates a ConvergenceError from a format string.
func NewConvergenceError(method, format string, a ...interface{}) *ConvergenceError {
	return &ConvergenceError{Method: method, Msg: fmt.Sprintf(format, a...)}
}

// ModelError indicates an unsupported model specification, e.g. an
// unknown rate-matrix variant or root-prior name.
type ModelError struct {
	Msg string
}

func (e *ModelError) Error() string {
	return "model error: " + e.Msg
}

// NewModelError creates a ModelError from a format string.
func NewModelError(format string, a ...interface{}) *ModelError {
	return &ModelError{Msg: fmt.Sprintf(format, a...)}
}
