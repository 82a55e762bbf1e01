package stage

import (
	"fmt"
	"regexp"
	"strings"
)

// DirWildcard is the placeholder standing in for the stack directory prefix
// in expanded file patterns. The execution engine substitutes the concrete
// stack path for it per job.
const DirWildcard = "_sw_dir"

// Stage is a named unit of work backing a set of rule records. Its input
// and output file types are inferred from the {:prev:} and {:this:}
// templates of its rules, or overridden via Require.
type Stage struct {
	name    string
	altname string

	// Docstring and software environment reference, stored verbatim.
	Doc string
	Env string

	// Source carries "file:line" of the definition for error messages and
	// idempotent re-registration.
	Source string

	params   []*Param
	inputs   map[string]bool
	outputs  map[string]bool
	requires map[string][][]string
	rules    []string

	matcher *regexp.Regexp
}

// NewStage creates an empty stage. altname may be empty.
func NewStage(name, altname string) *Stage {
	return &Stage{
		name:    name,
		altname: altname,
		inputs:  make(map[string]bool),
		outputs: make(map[string]bool),
	}
}

// Name returns the primary stage name.
func (s *Stage) Name() string { return s.name }

// AltName returns the alternate stage name, or "".
func (s *Stage) AltName() string { return s.altname }

// Params returns the stage's parameters in declaration order.
func (s *Stage) Params() []*Param { return s.params }

// Rules returns the names of the rule records declared within this stage.
func (s *Stage) Rules() []string { return append([]string(nil), s.rules...) }

// AddParam appends a parameter. Keys and names must be unique within the
// stage; adding a param after Finalize is an error.
func (s *Stage) AddParam(p *Param) error {
	if s.matcher != nil {
		return &DefinitionError{
			Stage: s.name, Source: s.Source,
			Msg: fmt.Sprintf("cannot add parameter '%s' after finalize", p.Name),
		}
	}
	for _, have := range s.params {
		if have.Key == p.Key {
			return &DefinitionError{
				Stage: s.name, Source: s.Source,
				Msg: fmt.Sprintf("parameter key '%s' already used by '%s'", p.Key, have.Name),
			}
		}
		if have.Name == p.Name {
			return &DefinitionError{
				Stage: s.name, Source: s.Source,
				Msg: fmt.Sprintf("parameter name '%s' already in use", p.Name),
			}
		}
	}
	s.params = append(s.params, p)
	return nil
}

// Require overrides the inferred stage inputs with explicit alternatives.
// Each key maps to a list of alternatives, each alternative being the list
// of file extensions that must be available together.
func (s *Stage) Require(requires map[string][][]string) {
	s.requires = requires
}

// Finalize compiles the name matcher from the stage name, altname and the
// parameter fragments. It must be called exactly once, after which the
// parameter list is immutable.
func (s *Stage) Finalize() error {
	if s.matcher != nil {
		return &DefinitionError{Stage: s.name, Source: s.Source, Msg: "already finalized"}
	}
	var b strings.Builder
	b.WriteString("^")
	if s.altname != "" {
		b.WriteString("(?:" + regexp.QuoteMeta(s.name) + "|" + regexp.QuoteMeta(s.altname) + ")")
	} else {
		b.WriteString(regexp.QuoteMeta(s.name))
	}
	for _, p := range s.params {
		b.WriteString(p.Fragment())
	}
	b.WriteString("$")
	matcher, err := regexp.Compile(b.String())
	if err != nil {
		return &DefinitionError{
			Stage: s.name, Source: s.Source,
			Msg: fmt.Sprintf("bad parameter regex: %v", err),
		}
	}
	s.matcher = matcher
	return nil
}

// Match reports whether name refers to this stage, including parametrized
// forms such as "trimQ20" for a stage "trim" with an int param keyed "Q".
func (s *Stage) Match(name string) bool {
	if s.matcher == nil {
		panic(fmt.Sprintf("stage '%s' used before finalize", s.name))
	}
	if !strings.HasPrefix(name, s.name) &&
		(s.altname == "" || !strings.HasPrefix(name, s.altname)) {
		return false
	}
	return s.matcher.MatchString(name)
}

// Parse extracts the typed parameter values embedded in name, falling back
// to each param's default where the optional group did not match. ok is
// false if name does not refer to this stage at all.
func (s *Stage) Parse(name string) (map[string]any, bool) {
	if s.matcher == nil {
		panic(fmt.Sprintf("stage '%s' used before finalize", s.name))
	}
	groups := s.matcher.FindStringSubmatch(name)
	if groups == nil {
		return nil, false
	}
	values := make(map[string]any, len(s.params))
	for _, p := range s.params {
		captured := ""
		if idx := s.matcher.SubexpIndex(p.Wildcard()); idx >= 0 {
			captured = groups[idx]
		}
		val, err := p.Parse(captured)
		if err != nil {
			// The fragment only admits convertible text; a failure here is
			// a programming error.
			panic(err)
		}
		values[p.Name] = val
	}
	return values, true
}

// Inputs returns a copy of the inferred input type set. When Require is in
// effect the keyed alternatives take precedence and this returns the union
// of all alternative patterns.
func (s *Stage) Inputs() map[string]bool {
	inputs := make(map[string]bool, len(s.inputs))
	if s.requires == nil {
		for typ := range s.inputs {
			inputs[typ] = true
		}
		return inputs
	}
	for _, alternatives := range s.requires {
		for _, exts := range alternatives {
			for _, ext := range exts {
				inputs[patternForExt(ext)] = true
			}
		}
	}
	return inputs
}

// Outputs returns the stage's output types. Regular stages produce their
// own files, so all redirect suffixes are empty.
func (s *Stage) Outputs() map[string]string {
	outputs := make(map[string]string, len(s.outputs))
	for typ := range s.outputs {
		outputs[typ] = ""
	}
	return outputs
}

// CanProvide determines which of inputs this stage can satisfy.
func (s *Stage) CanProvide(inputs map[string]bool) map[string]string {
	return intersectOutputs(s.Outputs(), inputs)
}

// Path returns the stack path itself: regular stages write into their own
// stack directory.
func (s *Stage) Path(stack *Stack) string { return stack.Path }

// Group imposes no grouping; it is inferred from the upstream stacks.
func (s *Stage) Group(_ *Stack) ([]string, bool, error) { return nil, false, nil }

// Wildcards returns the directory template for the given display name
// (name or altname): the directory wildcard, the name, and one placeholder
// per parameter.
func (s *Stage) Wildcards(name string) string {
	var b strings.Builder
	b.WriteString("{" + DirWildcard + "}")
	b.WriteString(name)
	for _, p := range s.params {
		b.WriteString(p.Pattern())
	}
	return b.String()
}

// WCPath reassembles the stack path of a concrete job from its wildcard
// values: the directory prefix plus the parametrized stage name.
func (s *Stage) WCPath(wc map[string]string) string {
	var b strings.Builder
	b.WriteString(wc[DirWildcard])
	b.WriteString(s.name)
	for _, p := range s.params {
		b.WriteString(wc[p.Wildcard()])
	}
	return b.String()
}

// WildcardConstraints returns the regex constraint for each parameter
// wildcard, for hand-off to the execution engine.
func (s *Stage) WildcardConstraints() map[string]string {
	constraints := make(map[string]string, len(s.params))
	for _, p := range s.params {
		constraints[p.Wildcard()] = p.Constraint()
	}
	return constraints
}

// addRule records a rule name as belonging to this stage.
func (s *Stage) addRule(name string) {
	s.rules = append(s.rules, name)
}

func patternForExt(ext string) string {
	return "/{sample}." + ext
}
