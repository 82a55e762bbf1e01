package expand

import (
	"context"

	"github.com/vk/stagewalk/internal/model"
)

// DefaultExpander fills rule fields from a synthetic defaults record, as if
// every rule implicitly extended it. The defaults record carries no
// execution payload, so no precedence constraints arise.
type DefaultExpander struct {
	defaults *model.Rule
}

// NewDefaultExpander creates the defaults strategy. A nil defaults record
// makes it a no-op.
func NewDefaultExpander(defaults *model.Rule) *DefaultExpander {
	return &DefaultExpander{defaults: defaults}
}

func (e *DefaultExpander) Name() string { return "defaults" }

func (e *DefaultExpander) Expand(_ context.Context, rule *model.Rule) error {
	if e.defaults == nil {
		return nil
	}
	mergeRule(rule, e.defaults)
	return nil
}
