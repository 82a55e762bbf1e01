package expand

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/vk/stagewalk/internal/ctxlog"
	"github.com/vk/stagewalk/internal/dag"
	"github.com/vk/stagewalk/internal/model"
)

// fieldLateParams lists, per field, the late parameters a remaining
// placeholder may legally refer to. A reference to one of these defers the
// value as a LateFunc; anything else is left for the execution engine's
// wildcard substitution.
var fieldLateParams = map[string][]string{
	"input":     {"wildcards"},
	"params":    {"wildcards", "input", "resources", "output", "threads"},
	"resources": {"wildcards", "input", "attempt", "threads"},
}

var leafRe = regexp.MustCompile(`^(\w+)\[(\d+)\]$`)

// RecursiveExpander resolves {name} placeholders between the fields of a
// rule record in dependency order.
type RecursiveExpander struct{}

// NewRecursiveExpander creates the field expansion strategy.
func NewRecursiveExpander() *RecursiveExpander {
	return &RecursiveExpander{}
}

func (e *RecursiveExpander) Name() string { return "recursive" }

// Expand flattens every tuple field, builds the reference graph over the
// flattened leaves, orders it topologically, and substitutes what can be
// substituted. Leaves still referencing late parameters become LateFunc
// closures; placeholders naming neither a field nor a late parameter stay
// untouched for per-job wildcard substitution.
func (e *RecursiveExpander) Expand(ctx context.Context, rule *model.Rule) error {
	logger := ctxlog.FromContext(ctx)

	lists := make(map[string]*NamedList)
	for _, field := range model.TupleFields {
		t := rule.Field(field)
		if t == nil {
			continue
		}
		flattenTuple(t)
		lists[field] = newNamedList(t)
	}

	g := dag.New()
	for _, field := range model.TupleFields {
		list, ok := lists[field]
		if !ok {
			continue
		}
		for i := 0; i < list.Len(); i++ {
			value, isStr := list.Value(i).(string)
			if !isStr {
				continue
			}
			leaf := fmt.Sprintf("%s[%d]", field, i)
			g.AddNode(leaf)
			for _, name := range Names(value) {
				if _, known := lists[rootName(name)]; known {
					if err := g.AddEdge(leaf, name); err != nil {
						return &CircularReferenceError{Rule: rule.Name, Chain: []string{leaf}}
					}
				}
			}
			if err := g.AddEdge(field, leaf); err != nil {
				return err
			}
		}
		for _, name := range list.Names() {
			sp, _ := list.Span(name)
			for i := sp.start; i < sp.end; i++ {
				if err := g.AddEdge(field+"."+name, fmt.Sprintf("%s[%d]", field, i)); err != nil {
					return err
				}
			}
		}
	}

	order, err := g.TopoSort()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return &CircularReferenceError{Rule: rule.Name, Chain: cycle.Nodes}
		}
		return err
	}

	for _, node := range order {
		m := leafRe.FindStringSubmatch(node)
		if m == nil || g.OutDegree(node) == 0 {
			continue
		}
		field := m[1]
		var idx int
		fmt.Sscanf(m[2], "%d", &idx)

		list := lists[field]
		value, isStr := list.Value(idx).(string)
		if !isStr {
			continue
		}

		resolved := PartialFormat(value, func(name string) (string, bool) {
			root := rootName(name)
			target, ok := lists[root]
			if !ok {
				return "", false
			}
			return target.Resolve(name[len(root):])
		})

		if params := referencedLateParams(field, resolved); len(params) > 0 {
			text := resolved
			list.Set(idx, NewLateFunc(params, func(values map[string]any) (string, error) {
				return StrictFormat(text, lateLookup(values))
			}))
		} else {
			list.Set(idx, resolved)
		}
		if resolved != value {
			logger.Debug("expanded field value",
				"rule", rule.Name, "node", node, "from", value, "to", resolved)
		}
	}

	for _, field := range model.TupleFields {
		if list, ok := lists[field]; ok {
			list.UpdateTuple(rule.Field(field))
		}
	}
	return nil
}

// referencedLateParams returns the late parameters of field that text still
// references, in the field table's order.
func referencedLateParams(field, text string) []string {
	allowed := fieldLateParams[field]
	if len(allowed) == 0 {
		return nil
	}
	roots := make(map[string]bool)
	for _, name := range Names(text) {
		roots[rootName(name)] = true
	}
	var params []string
	for _, p := range allowed {
		if roots[p] {
			params = append(params, p)
		}
	}
	return params
}
