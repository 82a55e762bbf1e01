package expand

import (
	"context"

	"github.com/vk/stagewalk/internal/model"
	"github.com/vk/stagewalk/internal/stage"
)

// InheritanceExpander merges a rule with the parent named by its extends
// attribute. Parents must be processed before their children, which holds
// when rules are expanded in definition order.
type InheritanceExpander struct {
	rules map[string]*model.Rule
	reg   *stage.Registry
}

// NewInheritanceExpander creates the inheritance strategy over the loaded
// rule set. reg receives the implicit precedence constraints and may be
// nil in tests.
func NewInheritanceExpander(rules map[string]*model.Rule, reg *stage.Registry) *InheritanceExpander {
	return &InheritanceExpander{rules: rules, reg: reg}
}

func (e *InheritanceExpander) Name() string { return "inheritance" }

func (e *InheritanceExpander) Expand(_ context.Context, rule *model.Rule) error {
	if rule.Extends == "" {
		return nil
	}
	parent, ok := e.rules[rule.Extends]
	if !ok {
		return &InheritanceError{Rule: rule.Name, Parent: rule.Extends, Msg: "unable to find parent"}
	}
	mergeRule(rule, parent)

	// Where parent and child could both produce an output, the execution
	// engine must prefer the parent to keep the build graph unambiguous.
	if parent.Runnable() && e.reg != nil {
		e.reg.AddRuleOrder(parent.Name, rule.Name)
	}
	return nil
}

// mergeRule merges parent into child: tuple fields merge positionally
// wholesale (child preferred) and named values key-by-key (child over
// parent, parent deep-copied first); scalar fields fall back to the
// parent's where the child leaves them empty; the execution payload is
// copied from the parent only when the child declares none.
func mergeRule(child, parent *model.Rule) {
	if !child.Runnable() {
		child.Shell = parent.Shell
		child.Script = parent.Script
	}

	for _, field := range model.TupleFields {
		childT := child.Field(field)
		parentT := parent.Field(field)
		if parentT == nil {
			continue
		}
		if childT == nil {
			child.SetField(field, parentT.Copy())
			continue
		}
		merged := parentT.Copy()
		if len(childT.Pos) > 0 {
			merged.Pos = childT.Pos
		}
		for _, arg := range childT.Named {
			merged.Set(arg.Name, arg.Value)
		}
		child.SetField(field, merged)
	}

	if child.Doc == "" {
		child.Doc = parent.Doc
	}
	if child.Message == "" {
		child.Message = parent.Message
	}
	if child.Threads == 0 {
		child.Threads = parent.Threads
	}
	if child.Priority == 0 {
		child.Priority = parent.Priority
	}
	if child.WildcardConstraints == nil && parent.WildcardConstraints != nil {
		child.WildcardConstraints = make(map[string]string, len(parent.WildcardConstraints))
		for k, v := range parent.WildcardConstraints {
			child.WildcardConstraints[k] = v
		}
	}
}
