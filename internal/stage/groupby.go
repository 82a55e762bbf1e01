package stage

// GroupByPrefix marks a path segment as an explicit regrouping instruction.
const GroupByPrefix = "group_"

// GroupBy is a zero-output placeholder stage representing a "group_<column>"
// path segment. It contributes no files and only alters grouping state.
type GroupBy struct {
	name string
}

// NewGroupBy creates a GroupBy for a full segment name ("group_<column>").
func NewGroupBy(name string) *GroupBy {
	return &GroupBy{name: name}
}

func (g *GroupBy) Name() string { return g.name }

// Column returns the grouping column encoded in the segment name.
func (g *GroupBy) Column() string { return g.name[len(GroupByPrefix):] }

func (g *GroupBy) Match(name string) bool {
	return name == g.name
}

func (g *GroupBy) Inputs() map[string]bool    { return map[string]bool{} }
func (g *GroupBy) Outputs() map[string]string { return map[string]string{} }
func (g *GroupBy) Path(stack *Stack) string   { return stack.Path }

func (g *GroupBy) CanProvide(inputs map[string]bool) map[string]string {
	return map[string]string{}
}

// Group returns the override columns: the literal column name, or no
// columns at all for the special token "ALL" (a single combined output).
func (g *GroupBy) Group(_ *Stack) ([]string, bool, error) {
	if g.Column() == "ALL" {
		return []string{}, true, nil
	}
	return []string{g.Column()}, true, nil
}
