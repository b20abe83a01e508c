// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import "github.com/bassosimone/errclass"

// ErrClassifier classifies errors into categorical strings for analysis.
//
// Implementations map errors to short, descriptive labels (e.g., "ETIMEDOUT",
// "ECONNREFUSED") that facilitate systematic analysis of connection-attempt
// results and drive the Connector's retry-vs-fatal decision (see
// classifyConnectError).
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	cfg.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using github.com/bassosimone/errclass.
//
// This core needs real errno classification at construction time, not a
// no-op default: the Connector uses the classified
// label to decide whether a failed candidate is transient (try the next
// one) or fatal (fail the context). See spec.md §4.9.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
