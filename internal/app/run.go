package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/stagewalk/internal/ctxlog"
	"github.com/vk/stagewalk/internal/expand"
	"github.com/vk/stagewalk/internal/model"
	"github.com/vk/stagewalk/internal/stage"
)

// Run resolves every target path into a stage stack and prints the
// resolved state plus the expanded rule records of the head stage: the
// hand-off payload for an external execution engine.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	for _, target := range cfg.Targets {
		logger.Debug("resolving target", "path", target)
		stack, err := a.reg.Stack(target)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", target, err)
		}
		if err := a.printStack(stack); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) printStack(stack *stage.Stack) error {
	fmt.Fprintf(a.outW, "stack %s\n", stack.Path)
	fmt.Fprintf(a.outW, "  dir:    %s\n", stack.Dir())
	fmt.Fprintf(a.outW, "  groups: %s\n", formatGroups(stack.Group))

	targets, err := stack.Targets()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "  targets: %s\n", strings.Join(targets, ", "))

	// Group the inputs by providing stack so the provenance reads well.
	byPrev := make(map[string][]string)
	for typ, prev := range stack.Prevs {
		byPrev[prev.Path] = append(byPrev[prev.Path], typ)
	}
	paths := make([]string, 0, len(byPrev))
	for path := range byPrev {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		types := byPrev[path]
		sort.Strings(types)
		fmt.Fprintf(a.outW, "  from %s: %s\n",
			path, strings.ReplaceAll(strings.Join(types, " "), "/{sample}", "*"))
	}

	if st, ok := stack.Stage().(*stage.Stage); ok {
		for _, name := range st.Rules() {
			if rule, ok := a.model.Rules[name]; ok {
				a.printRule(rule)
			}
		}
	}
	return nil
}

func (a *App) printRule(rule *model.Rule) {
	fmt.Fprintf(a.outW, "  rule %s (%s)\n", rule.Name, rule.Source)
	for _, field := range model.TupleFields {
		t := rule.Field(field)
		if t == nil {
			continue
		}
		fmt.Fprintf(a.outW, "    %-10s %s\n", field+":", formatTuple(t))
	}
	if rule.Shell != "" {
		fmt.Fprintf(a.outW, "    %-10s %s\n", "shell:", rule.Shell)
	}
	if rule.Script != "" {
		fmt.Fprintf(a.outW, "    %-10s %s\n", "script:", rule.Script)
	}
}

func formatGroups(groups []string) string {
	if len(groups) == 0 {
		return "ALL"
	}
	return strings.Join(groups, ", ")
}

func formatTuple(t *model.ArgsTuple) string {
	var parts []string
	for _, v := range t.Pos {
		parts = append(parts, formatValue(v))
	}
	for _, arg := range t.Named {
		parts = append(parts, arg.Name+"="+formatValue(arg.Value))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case *expand.LateFunc:
		return fmt.Sprintf("<late(%s)>", strings.Join(val.Params, ", "))
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
