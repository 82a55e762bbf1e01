package stage

import (
	"fmt"
	"regexp"
	"strings"
)

// PipelineMember is one entry of a pipeline's stage sequence. The name may
// contain parameter placeholders ("{length}") substituted from the
// pipeline's own params. Hidden members still shape the pipeline path but
// do not expose their outputs through the pipeline.
type PipelineMember struct {
	Name string
	Hide bool
}

// Pipeline is a virtual stage aggregating an ordered sequence of stages.
// Its outputs are the union of the member outputs in declaration order;
// the first member introducing an output type wins and later members never
// overwrite it.
type Pipeline struct {
	name string
	reg  *Registry

	params  []*Param
	members []PipelineMember

	// hideOutputs hides every member's outputs unless a member overrides it.
	hideOutputs bool

	// pipeline is the path fragment described by the members, with
	// parameter placeholders still unsubstituted (".a.b{length}").
	pipeline string

	matcher *regexp.Regexp
}

// NewPipeline creates a pipeline over the given members. params may be nil.
// The name matcher is compiled here; pipelines take no further definition
// steps after construction.
func NewPipeline(name string, members []PipelineMember, params []*Param, hideOutputs bool) (*Pipeline, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("pipeline '%s': no stages", name)
	}
	var path strings.Builder
	for _, m := range members {
		if m.Name == "" {
			return nil, fmt.Errorf("pipeline '%s': empty stage name", name)
		}
		path.WriteString("." + m.Name)
	}
	var b strings.Builder
	b.WriteString("^" + regexp.QuoteMeta(name))
	for _, p := range params {
		b.WriteString(p.Fragment())
	}
	b.WriteString("$")
	matcher, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("pipeline '%s': bad parameter regex: %w", name, err)
	}
	return &Pipeline{
		name:        name,
		params:      params,
		members:     append([]PipelineMember(nil), members...),
		hideOutputs: hideOutputs,
		pipeline:    path.String(),
		matcher:     matcher,
	}, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Params returns the pipeline's parameters in declaration order.
func (p *Pipeline) Params() []*Param { return p.params }

// Members returns the member sequence.
func (p *Pipeline) Members() []PipelineMember {
	return append([]PipelineMember(nil), p.members...)
}

// Match reports whether the path segment refers to this pipeline, including
// parametrized forms.
func (p *Pipeline) Match(name string) bool {
	return p.matcher.MatchString(name)
}

// Parse extracts the typed parameter values embedded in name.
func (p *Pipeline) Parse(name string) (map[string]any, bool) {
	groups := p.matcher.FindStringSubmatch(name)
	if groups == nil {
		return nil, false
	}
	values := make(map[string]any, len(p.params))
	for _, par := range p.params {
		captured := ""
		if idx := p.matcher.SubexpIndex(par.Wildcard()); idx >= 0 {
			captured = groups[idx]
		}
		val, err := par.Parse(captured)
		if err != nil {
			panic(err)
		}
		values[par.Name] = val
	}
	return values, true
}

// checkMembers verifies that every member name resolves against the
// registry, with parameter defaults substituted into parametrized names.
// Member stages may be defined after the pipeline, so the check runs when
// the pipeline is first used in a stack, not at registration.
func (p *Pipeline) checkMembers() error {
	defaults := p.defaultValues()
	for _, m := range p.members {
		if _, err := p.reg.FindStage(p.memberSegment(m, defaults)); err != nil {
			return fmt.Errorf("pipeline '%s': %w", p.name, err)
		}
	}
	return nil
}

// Inputs returns the inputs of the first member stage: everything after it
// is fed from within the pipeline.
func (p *Pipeline) Inputs() map[string]bool {
	if p.reg == nil {
		return map[string]bool{}
	}
	first, err := p.reg.FindStage(p.memberSegment(p.members[0], nil))
	if err != nil {
		return map[string]bool{}
	}
	return first.Inputs()
}

// Outputs walks the members front to back, accumulating the path suffix of
// each. An output type is recorded with the suffix of the first member
// introducing it. Parameter placeholders in member names are substituted
// with the parameter defaults.
func (p *Pipeline) Outputs() map[string]string {
	defaults := p.defaultValues()
	outputs := make(map[string]string)
	path := ""
	for _, m := range p.members {
		segment := p.memberSegment(m, defaults)
		path += "." + segment
		if m.Hide || p.hideOutputs {
			continue
		}
		member, err := p.reg.FindStage(segment)
		if err != nil {
			continue
		}
		for typ, sub := range member.Outputs() {
			if _, ok := outputs[typ]; !ok {
				outputs[typ] = path + sub
			}
		}
	}
	return outputs
}

// CanProvide maps each satisfiable input to the path suffix of the member
// that actually provides it.
func (p *Pipeline) CanProvide(inputs map[string]bool) map[string]string {
	return intersectOutputs(p.Outputs(), inputs)
}

// Path expands the pipeline into the stack's path: the prefix before the
// pipeline segment plus the member sequence, with parameter placeholders
// substituted from the values parsed out of the concrete segment name.
func (p *Pipeline) Path(stack *Stack) string {
	prefix := stack.Path
	if idx := strings.LastIndex(prefix, "."); idx >= 0 {
		prefix = prefix[:idx]
	}
	values, ok := p.Parse(stack.SegmentName())
	if !ok {
		values = p.defaultValues()
	}
	return prefix + formatValues(p.pipeline, values)
}

// Group delegates to the stack the pipeline expands to.
func (p *Pipeline) Group(stack *Stack) ([]string, bool, error) {
	real, err := stack.Instance(p.Path(stack))
	if err != nil {
		return nil, false, err
	}
	return real.Group, true, nil
}

func (p *Pipeline) defaultValues() map[string]any {
	if len(p.params) == 0 {
		return nil
	}
	values := make(map[string]any, len(p.params))
	for _, par := range p.params {
		values[par.Name] = par.Default
	}
	return values
}

func (p *Pipeline) memberSegment(m PipelineMember, values map[string]any) string {
	return formatValues(m.Name, values)
}

// formatValues substitutes {name} placeholders from values, leaving unknown
// placeholders untouched.
func formatValues(s string, values map[string]any) string {
	if len(values) == 0 {
		return s
	}
	for name, val := range values {
		s = strings.ReplaceAll(s, "{"+name+"}", fmt.Sprint(val))
	}
	return s
}
