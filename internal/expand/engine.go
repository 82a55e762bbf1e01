package expand

import (
	"context"
	"fmt"

	"github.com/vk/stagewalk/internal/ctxlog"
	"github.com/vk/stagewalk/internal/model"
	"github.com/vk/stagewalk/internal/stage"
)

// Expander is one strategy of the expansion chain, applied to each rule
// record in turn.
type Expander interface {
	Name() string
	Expand(ctx context.Context, rule *model.Rule) error
}

// Engine applies a fixed, ordered list of expanders to rule records.
type Engine struct {
	expanders []Expander
}

// NewEngine creates an engine over the given strategies, applied in order.
func NewEngine(expanders ...Expander) *Engine {
	return &Engine{expanders: expanders}
}

// NewDefaultEngine wires the standard chain: inheritance, defaults, stage
// context, recursive field expansion.
func NewDefaultEngine(reg *stage.Registry, rules map[string]*model.Rule, defaults *model.Rule) *Engine {
	return NewEngine(
		NewInheritanceExpander(rules, reg),
		NewDefaultExpander(defaults),
		NewContextExpander(reg),
		NewRecursiveExpander(),
	)
}

// ExpandRule runs the rule through the chain. The first failing strategy
// aborts the run.
func (e *Engine) ExpandRule(ctx context.Context, rule *model.Rule) error {
	logger := ctxlog.FromContext(ctx)
	for _, exp := range e.expanders {
		if err := exp.Expand(ctx, rule); err != nil {
			return fmt.Errorf("expander %s: rule '%s': %w", exp.Name(), rule.Name, err)
		}
		logger.Debug("expander applied", "expander", exp.Name(), "rule", rule.Name)
	}
	return nil
}
