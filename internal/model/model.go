package model

// NamedArg is one named value of an argument tuple. Order is preserved from
// the definition file.
type NamedArg struct {
	Name  string
	Value any
}

// ArgsTuple holds the positional and named values of one rule field. Values
// are strings, numbers, nested []any lists, or expand.LateFunc closures
// once the expansion engine has processed the rule.
type ArgsTuple struct {
	Pos   []any
	Named []NamedArg
}

// Get returns the named value, or nil.
func (t *ArgsTuple) Get(name string) any {
	for _, arg := range t.Named {
		if arg.Name == name {
			return arg.Value
		}
	}
	return nil
}

// Set replaces the named value, appending if absent.
func (t *ArgsTuple) Set(name string, value any) {
	for i, arg := range t.Named {
		if arg.Name == name {
			t.Named[i].Value = value
			return
		}
	}
	t.Named = append(t.Named, NamedArg{Name: name, Value: value})
}

// Copy returns a deep copy. Nested lists are copied; scalar values and
// closures are shared.
func (t *ArgsTuple) Copy() *ArgsTuple {
	if t == nil {
		return nil
	}
	c := &ArgsTuple{
		Pos:   make([]any, len(t.Pos)),
		Named: make([]NamedArg, len(t.Named)),
	}
	for i, v := range t.Pos {
		c.Pos[i] = copyValue(v)
	}
	for i, arg := range t.Named {
		c.Named[i] = NamedArg{Name: arg.Name, Value: copyValue(arg.Value)}
	}
	return c
}

func copyValue(v any) any {
	if list, ok := v.([]any); ok {
		c := make([]any, len(list))
		for i, e := range list {
			c[i] = copyValue(e)
		}
		return c
	}
	return v
}

// Rule is one rule record. Tuple-valued fields are nil when absent from the
// definition.
type Rule struct {
	Name string

	// Doc is the rule's docstring.
	Doc string

	Input     *ArgsTuple
	Output    *ArgsTuple
	Params    *ArgsTuple
	Resources *ArgsTuple
	Log       *ArgsTuple
	Benchmark *ArgsTuple

	Message  string
	Threads  int
	Priority int

	WildcardConstraints map[string]string

	// Shell and Script are the execution payload; at most one is set.
	Shell  string
	Script string

	// Extends names the parent rule this record inherits from.
	Extends string

	// Source carries "file:line" of the definition.
	Source string
}

// Runnable reports whether the rule carries an execution payload of its own.
func (r *Rule) Runnable() bool {
	return r.Shell != "" || r.Script != ""
}

// Field returns the tuple field of the given name, or nil.
func (r *Rule) Field(name string) *ArgsTuple {
	switch name {
	case "input":
		return r.Input
	case "output":
		return r.Output
	case "params":
		return r.Params
	case "resources":
		return r.Resources
	case "log":
		return r.Log
	case "benchmark":
		return r.Benchmark
	}
	return nil
}

// SetField replaces the tuple field of the given name.
func (r *Rule) SetField(name string, t *ArgsTuple) {
	switch name {
	case "input":
		r.Input = t
	case "output":
		r.Output = t
	case "params":
		r.Params = t
	case "resources":
		r.Resources = t
	case "log":
		r.Log = t
	case "benchmark":
		r.Benchmark = t
	}
}

// TupleFields lists the expandable tuple fields in processing order.
var TupleFields = []string{"input", "output", "params", "resources", "log", "benchmark"}

// ParamDef is a stage or pipeline parameter declaration.
type ParamDef struct {
	Name    string
	Key     string
	Type    string
	Value   string
	Default any
	Choices []string
}

// StageDef is a stage declaration with its rules.
type StageDef struct {
	Name    string
	AltName string
	Doc     string
	Env     string
	Params  []ParamDef
	// Require maps input keys to alternative extension groups overriding
	// the inferred inputs.
	Require map[string][][]string
	Rules   []*Rule
	Source  string
}

// PipelineMemberDef is one member of a pipeline declaration.
type PipelineMemberDef struct {
	Name string
	Hide bool
}

// PipelineDef is a pipeline declaration.
type PipelineDef struct {
	Name   string
	Hide   bool
	Params []ParamDef
	Stages []PipelineMemberDef
	Source string
}

// Model is the merged content of all loaded definition files.
type Model struct {
	Stages    []*StageDef
	Pipelines []*PipelineDef
	// Rules indexes every rule of every stage by name, for inheritance
	// lookup.
	Rules map[string]*Rule
}
