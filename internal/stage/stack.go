package stage

import (
	"fmt"
	"strings"
)

// Stack is the resolved head of a processing chain: the project, the stage
// at the end of the path, the upstream stacks feeding each required input
// type, and the active grouping columns.
//
// Stacks are memoized by path in the registry: exactly one Stack exists per
// distinct path string. Obtain them via Registry.Stack.
type Stack struct {
	reg *Registry

	// Path is the full dot-separated path string.
	Path string

	segments []string
	stages   []Provider
	stage    Provider
	project  *Project

	// Prevs maps each required input file type to the upstream stack
	// providing it. prevOrder records insertion order for deterministic
	// grouping inference.
	Prevs     map[string]*Stack
	prevOrder []string

	// Group holds the active grouping columns. Empty means a single
	// combined output (ALL).
	Group []string
}

// Stack returns the memoized stack for a path, constructing it on first
// use. Two calls with the same path return the identical object.
func (r *Registry) Stack(path string) (*Stack, error) {
	if s, ok := r.stacks[path]; ok {
		return s, nil
	}
	s, err := newStack(r, path)
	if err != nil {
		return nil, err
	}
	r.stacks[path] = s
	r.log.Info("stage stack resolved", "stack", s.Path, "groups", s.Group)
	return s, nil
}

func newStack(r *Registry, path string) (*Stack, error) {
	s := &Stack{
		reg:      r,
		Path:     path,
		segments: strings.Split(path, "."),
		Prevs:    make(map[string]*Stack),
	}

	for _, name := range s.segments {
		provider, err := r.FindStage(name)
		if err != nil {
			return nil, err
		}
		if pipe, ok := provider.(*Pipeline); ok {
			if err := pipe.checkMembers(); err != nil {
				return nil, err
			}
		}
		s.stages = append(s.stages, provider)
	}
	s.stage = s.stages[len(s.stages)-1]

	project, ok := r.Project(s.segments[0])
	if !ok {
		return nil, &StackError{Path: path, Msg: "no project for this stack"}
	}
	s.project = project

	if err := s.resolvePrevs(); err != nil {
		return nil, err
	}
	if err := s.resolveGroup(); err != nil {
		return nil, err
	}
	return s, nil
}

// Stage returns the provider at the head of the stack.
func (s *Stack) Stage() Provider { return s.stage }

// Project returns the project at the root of the stack.
func (s *Stack) Project() *Project { return s.project }

// SegmentName returns the last path segment, i.e. the head stage's
// concrete (possibly parametrized) name.
func (s *Stack) SegmentName() string { return s.segments[len(s.segments)-1] }

// Dir returns the on-disk location of the files this stack provides.
// Virtual stages redirect it away from the stack path itself.
func (s *Stack) Dir() string { return s.stage.Path(s) }

// Instance resolves another path through the same registry.
func (s *Stack) Instance(path string) (*Stack, error) {
	return s.reg.Stack(path)
}

// resolvePrevs walks the path segments right to left, asking the stack at
// each prefix which of the still-pending input types it can provide.
func (s *Stack) resolvePrevs() error {
	if st, ok := s.stage.(*Stage); ok && st.requires != nil {
		return s.resolveRequired(st)
	}

	pending := s.stage.Inputs()
	names := s.segments[:len(s.segments)-1]
	for len(names) > 0 && len(pending) > 0 {
		prefix := strings.Join(names, ".")
		provider := s.stages[len(names)-1]
		names = names[:len(names)-1]
		// Every visited prefix must itself be resolvable; a broken
		// intermediate stage fails the whole path.
		if _, err := s.reg.Stack(prefix); err != nil {
			return err
		}
		provides := provider.CanProvide(pending)
		if err := s.recordPrevs(prefix, strings.Join(names, "."), provides); err != nil {
			return err
		}
		for typ := range provides {
			delete(pending, typ)
		}
	}
	if len(pending) > 0 {
		types := make([]string, 0, len(pending))
		for typ := range pending {
			types = append(types, typ)
		}
		return s.missingInputError(types)
	}
	return nil
}

// resolveRequired handles an explicit Require override: each key maps to
// alternative extension groups, and a key is consumed when any one
// alternative is fully provided by a single upstream stack.
func (s *Stack) resolveRequired(st *Stage) error {
	pending := make(map[string][][]string, len(st.requires))
	for key, alts := range st.requires {
		pending[key] = alts
	}

	names := s.segments[:len(s.segments)-1]
	for len(names) > 0 && len(pending) > 0 {
		prefix := strings.Join(names, ".")
		provider := s.stages[len(names)-1]
		names = names[:len(names)-1]
		if _, err := s.reg.Stack(prefix); err != nil {
			return err
		}

		provides := make(map[string]string)
		for key, alts := range pending {
			for _, exts := range alts {
				want := make(map[string]bool, len(exts))
				for _, ext := range exts {
					want[patternForExt(ext)] = true
				}
				have := provider.CanProvide(want)
				if len(have) != len(want) {
					continue
				}
				for typ, suffix := range have {
					if _, seen := provides[typ]; !seen {
						provides[typ] = suffix
					}
				}
				delete(pending, key)
				break
			}
		}
		if err := s.recordPrevs(prefix, strings.Join(names, "."), provides); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		var types []string
		for _, alts := range pending {
			for _, exts := range alts {
				for _, ext := range exts {
					types = append(types, patternForExt(ext))
				}
			}
		}
		return s.missingInputError(types)
	}
	return nil
}

// recordPrevs resolves the providing stack for each satisfied type. A
// non-empty redirect suffix points past the virtual stage at prefix to the
// sub-path actually producing the file.
func (s *Stack) recordPrevs(prefix, rest string, provides map[string]string) error {
	for _, typ := range sortedKeys(provides) {
		suffix := provides[typ]
		path := prefix
		if suffix != "" {
			path = rest + suffix
		}
		prev, err := s.reg.Stack(path)
		if err != nil {
			return err
		}
		if _, ok := s.Prevs[typ]; !ok {
			s.prevOrder = append(s.prevOrder, typ)
		}
		s.Prevs[typ] = prev
	}
	return nil
}

// missingInputError lists, per missing type, the registered stages whose
// outputs could provide it.
func (s *Stack) missingInputError(types []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "file types '%s' required by '%s' not found in '%s'",
		strings.Join(types, " "), s.stage.Name(), s.Path)
	b.WriteString("; stages providing missing file types:")
	for _, typ := range types {
		var names []string
		for _, st := range s.reg.Stages() {
			if len(st.CanProvide(map[string]bool{typ: true})) > 0 {
				names = append(names, st.Name())
			}
		}
		fmt.Fprintf(&b, " %s -- %s", typ, strings.Join(names, " "))
	}
	return &StackError{Path: s.Path, Msg: b.String()}
}

// resolveGroup determines the active grouping columns: the head stage's
// fixed grouping, an explicit group_ override segment, or the minimized
// union of the upstream groupings.
func (s *Stack) resolveGroup() error {
	cols, ok, err := s.stage.Group(s)
	if err != nil {
		return err
	}
	if len(s.stages) > 1 {
		if gb, isGroupBy := s.stages[len(s.stages)-2].(*GroupBy); isGroupBy {
			if ok {
				return &StackError{
					Path: s.Path,
					Msg:  fmt.Sprintf("cannot apply grouping to '%s'", s.stage.Name()),
				}
			}
			cols, ok, err = gb.Group(s)
			if err != nil {
				return err
			}
		}
	}
	if ok {
		s.Group = cols
		return nil
	}

	// Later prevs take precedence; keep the first occurrence of each column.
	seen := make(map[string]bool)
	var groups []string
	for i := len(s.prevOrder) - 1; i >= 0; i-- {
		prev := s.Prevs[s.prevOrder[i]]
		for _, col := range prev.Group {
			if !seen[col] {
				seen[col] = true
				groups = append(groups, col)
			}
		}
	}
	minimal, other, err := s.project.MinimizeVariables(groups)
	if err != nil {
		return err
	}
	s.Group = append(minimal, other...)
	return nil
}

// Prev returns the upstream stack providing the input type referenced by a
// "{:prev:}" rule template.
func (s *Stack) Prev(item string) (*Stack, error) {
	_, _, suffix := cutPrev(item)
	typ := NormWildcards(suffix)
	prev, ok := s.Prevs[typ]
	if !ok {
		return nil, &StackError{
			Path: s.Path,
			Msg:  fmt.Sprintf("no input of type '%s' (from '%s')", typ, item),
		}
	}
	return prev, nil
}

// Targets returns the identifiers this stack currently outputs under its
// active grouping.
func (s *Stack) Targets() ([]string, error) {
	return s.project.GetIDs(s.Group, nil, "")
}

// TargetsFor translates the current per-job target into the identifiers of
// the upstream stack providing item.
func (s *Stack) TargetsFor(item, target string) ([]string, error) {
	prev, err := s.Prev(item)
	if err != nil {
		return nil, err
	}
	return s.project.GetIDs(prev.Group, s.Group, target)
}

func cutPrev(item string) (before, sep, after string) {
	const marker = "{:prev:}"
	if idx := strings.Index(item, marker); idx >= 0 {
		return item[:idx], marker, item[idx+len(marker):]
	}
	return item, "", ""
}
