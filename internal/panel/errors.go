// Package panel applies the audit filter, computes the loss-ratio metric and
// derived features, attaches premium-based weights, and selects the
// longitudinally stable subset.
package panel

import "fmt"

// InvalidConfigError reports a configuration value that makes the requested
// computation meaningless. It aborts before any computation.
type InvalidConfigError struct {
	Name   string
	Detail string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Name, e.Detail)
}
