package expand

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/stagewalk/internal/model"
	"github.com/vk/stagewalk/internal/stage"
)

// colonRe matches {:name:} context placeholders.
var colonRe = regexp.MustCompile(`\{:\s*([^:{}]+?)\s*:\}`)

// ContextExpander resolves {:name:} placeholders against the stage
// currently being defined and the stack it will run in. Placeholders that
// need per-job state ({:prev:}, {:target:}, {:targets:}) become LateFunc
// closures resolved through the registry's stack table at job time.
type ContextExpander struct {
	reg *stage.Registry
}

// NewContextExpander creates the context resolution strategy.
func NewContextExpander(reg *stage.Registry) *ContextExpander {
	return &ContextExpander{reg: reg}
}

func (e *ContextExpander) Name() string { return "context" }

// Expand registers the rule with the active stage scope, injects the stage
// parameters into the rule's params field, and resolves context
// placeholders in every tuple field. Without an active scope the rule is
// left untouched.
func (e *ContextExpander) Expand(_ context.Context, rule *model.Rule) error {
	scope := e.reg.Active()
	if scope == nil {
		return nil
	}
	scope.AddRule(rule.Name)

	st := scope.Stage()
	if len(st.Params()) > 0 {
		if rule.Params == nil {
			rule.Params = &model.ArgsTuple{}
		}
		for _, p := range st.Params() {
			rule.Params.Set(p.Name, paramFunc(p))
		}
	}
	if rule.WildcardConstraints == nil && len(st.Params()) > 0 {
		rule.WildcardConstraints = st.WildcardConstraints()
	}

	for _, field := range model.TupleFields {
		t := rule.Field(field)
		if t == nil {
			continue
		}
		for i := range t.Pos {
			v, err := e.expandValue(scope, t.Pos[i])
			if err != nil {
				return err
			}
			t.Pos[i] = v
		}
		for i := range t.Named {
			v, err := e.expandValue(scope, t.Named[i].Value)
			if err != nil {
				return err
			}
			t.Named[i].Value = v
		}
	}
	return nil
}

// paramFunc exposes a stage parameter value as a deferred closure parsing
// the per-job wildcard capture.
func paramFunc(p *stage.Param) *LateFunc {
	return NewLateFunc([]string{"wildcards"}, func(values map[string]any) (string, error) {
		wildcards, _ := values["wildcards"].(map[string]string)
		v, err := p.Parse(wildcards[p.Wildcard()])
		if err != nil {
			return "", err
		}
		return fmt.Sprint(v), nil
	})
}

func (e *ContextExpander) expandValue(scope *stage.Scope, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return e.expandString(scope, val)
	case []any:
		for i := range val {
			sub, err := e.expandValue(scope, val[i])
			if err != nil {
				return nil, err
			}
			val[i] = sub
		}
		return val, nil
	}
	return v, nil
}

func (e *ContextExpander) expandString(scope *stage.Scope, item string) (any, error) {
	matches := colonRe.FindAllStringSubmatch(item, -1)
	if len(matches) == 0 {
		return item, nil
	}

	late := false
	for _, m := range matches {
		switch m[1] {
		case "prev", "target", "targets":
			late = true
		}
	}
	if late {
		// Input type inference must happen now, while the stage is being
		// defined; only directory resolution is deferred.
		if strings.Contains(item, "{:prev:}") {
			if _, _, err := scope.Prev(item); err != nil {
				return nil, err
			}
		}
		st := scope.Stage()
		text := item
		return NewLateFunc([]string{"wildcards"}, func(values map[string]any) (string, error) {
			return e.resolveLate(st, text, values)
		}), nil
	}

	var resolveErr error
	out := colonRe.ReplaceAllStringFunc(item, func(m string) string {
		if resolveErr != nil {
			return m
		}
		key := colonRe.FindStringSubmatch(m)[1]
		var val string
		var err error
		switch key {
		case "this":
			val, err = scope.This(item)
		case "that":
			val, err = scope.That(item)
		default:
			err = fmt.Errorf("unknown context placeholder '{:%s:}' in '%s'", key, item)
		}
		if err != nil {
			resolveErr = err
			return m
		}
		return val
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return out, nil
}

// resolveLate resolves the deferred context placeholders of item for one
// job: the stack is located via the job's directory wildcard, upstream
// directories come from its prev map, and remaining plain placeholders are
// filled from the wildcards. Anything still unresolved is a hard error.
func (e *ContextExpander) resolveLate(st *stage.Stage, item string, values map[string]any) (string, error) {
	wildcards, _ := values["wildcards"].(map[string]string)
	if wildcards == nil {
		return "", fmt.Errorf("cannot resolve '%s': no wildcards supplied", item)
	}
	stack, err := e.reg.Stack(st.WCPath(wildcards))
	if err != nil {
		return "", err
	}

	var resolveErr error
	out := colonRe.ReplaceAllStringFunc(item, func(m string) string {
		if resolveErr != nil {
			return m
		}
		key := colonRe.FindStringSubmatch(m)[1]
		switch key {
		case "this", "that":
			return stack.Dir()
		case "prev":
			prev, err := stack.Prev(item)
			if err != nil {
				resolveErr = err
				return m
			}
			return prev.Dir()
		case "targets":
			targets, err := stack.Targets()
			if err != nil {
				resolveErr = err
				return m
			}
			return strings.Join(targets, " ")
		case "target":
			targets, err := stack.TargetsFor(item, wildcards["target"])
			if err != nil {
				resolveErr = err
				return m
			}
			return strings.Join(targets, " ")
		}
		resolveErr = fmt.Errorf("unknown context placeholder '{:%s:}' in '%s'", key, item)
		return m
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return StrictFormat(out, lateLookup(values))
}
