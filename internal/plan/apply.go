package plan

import (
	"context"
	"fmt"
)

// ApplyStatus is the outcome of applying a plan to a view.
type ApplyStatus string

// ApplyStatus values.
const (
	ApplyOK     ApplyStatus = "ok"
	ApplyFailed ApplyStatus = "failed"
)

// ApplyResult reports whether a host installed a plan.
type ApplyResult struct {
	Status ApplyStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// Ok returns a successful ApplyResult.
func Ok() ApplyResult {
	return ApplyResult{Status: ApplyOK}
}

// Failed returns a failed ApplyResult with the given reason.
func Failed(format string, args ...any) ApplyResult {
	return ApplyResult{Status: ApplyFailed, Reason: fmt.Sprintf(format, args...)}
}

// OK reports whether the plan was applied.
func (r ApplyResult) OK() bool {
	return r.Status == ApplyOK
}

// Err converts a failed result into an error; it returns nil for success.
func (r ApplyResult) Err() error {
	if r.OK() {
		return nil
	}

	return fmt.Errorf("applying plan: %s", r.Reason)
}

// Applier is implemented by hosts that install a plan's filters in a view.
// Implementations are expected to install both filters atomically: when
// either install fails, neither may remain applied.
type Applier interface {
	Apply(ctx context.Context, p *FilterPlan) ApplyResult
}
