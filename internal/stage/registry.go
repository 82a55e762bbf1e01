package stage

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Registry holds every stage, project, pipeline and reference known to the
// application, plus the stage stack memo table. It is an explicit instance:
// resolution state never lives in package globals.
//
// All access happens during graph construction, which is single-threaded;
// the registry is not safe for concurrent use.
type Registry struct {
	stages    map[string]*Stage
	stageList []*Stage

	projects   map[string]*Project
	pipelines  map[string]*Pipeline
	references map[string]*Reference

	stacks map[string]*Stack

	// ruleOrder records precedence constraints (preferred, other) for the
	// execution engine.
	ruleOrder [][2]string

	active *Scope

	log *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{log: slog.Default()}
	r.Reset()
	return r
}

// SetLogger routes registry log output through the given logger.
func (r *Registry) SetLogger(log *slog.Logger) {
	r.log = log
}

// Reset clears all registered definitions and the stack memo table, for a
// full configuration reload.
func (r *Registry) Reset() {
	r.stages = make(map[string]*Stage)
	r.stageList = nil
	r.projects = make(map[string]*Project)
	r.pipelines = make(map[string]*Pipeline)
	r.references = make(map[string]*Reference)
	r.stacks = make(map[string]*Stack)
	r.ruleOrder = nil
	r.active = nil
}

// RegisterStage finalizes the stage and adds it under its name and altname.
// Registering a name already taken by a definition from a different source
// location is an error; re-registering from the same location is a no-op,
// supporting redefinition during interactive reload.
func (r *Registry) RegisterStage(st *Stage) error {
	names := []string{st.name}
	if st.altname != "" {
		names = append(names, st.altname)
	}
	for _, name := range names {
		if other, ok := r.stages[name]; ok && other != st {
			if other.Source != st.Source || other.Source == "" {
				return &DefinitionError{
					Stage: st.name, Source: st.Source,
					Msg: fmt.Sprintf("name '%s' already defined in %s", name, other.Source),
				}
			}
			// Same source location: replace the previous definition.
			r.dropStage(other)
		}
	}
	if st.matcher == nil {
		if err := st.Finalize(); err != nil {
			return err
		}
	}
	for _, name := range names {
		r.stages[name] = st
	}
	r.stageList = append(r.stageList, st)
	return nil
}

func (r *Registry) dropStage(st *Stage) {
	delete(r.stages, st.name)
	if st.altname != "" {
		delete(r.stages, st.altname)
	}
	for i, have := range r.stageList {
		if have == st {
			r.stageList = append(r.stageList[:i], r.stageList[i+1:]...)
			break
		}
	}
}

// Stages returns all registered stages in registration order.
func (r *Registry) Stages() []*Stage {
	return append([]*Stage(nil), r.stageList...)
}

// AddProject registers a project.
func (r *Registry) AddProject(p *Project) error {
	if _, ok := r.projects[p.Name()]; ok {
		return fmt.Errorf("project '%s' already defined", p.Name())
	}
	r.projects[p.Name()] = p
	return nil
}

// AddPipeline registers a pipeline and binds it to this registry for member
// lookup.
func (r *Registry) AddPipeline(p *Pipeline) error {
	if _, ok := r.pipelines[p.Name()]; ok {
		return fmt.Errorf("pipeline '%s' already defined", p.Name())
	}
	p.reg = r
	r.pipelines[p.Name()] = p
	return nil
}

// AddReference registers a reference under its short name.
func (r *Registry) AddReference(ref *Reference) error {
	if _, ok := r.references[ref.shortName]; ok {
		return fmt.Errorf("reference '%s' already defined", ref.shortName)
	}
	r.references[ref.shortName] = ref
	return nil
}

// Project returns the project of the given name.
func (r *Registry) Project(name string) (*Project, bool) {
	p, ok := r.projects[name]
	return p, ok
}

// FindStage resolves a bare path segment. The resolution order is
// significant: grouping and reference prefixes first, then projects, then
// pipelines, then a linear scan of the stage registry. A project or
// pipeline may not be shadowed by a regular stage sharing its name.
func (r *Registry) FindStage(name string) (Provider, error) {
	if strings.HasPrefix(name, GroupByPrefix) {
		return NewGroupBy(name), nil
	}
	if strings.HasPrefix(name, ReferencePrefix) {
		ref, ok := r.references[name[len(ReferencePrefix):]]
		if !ok {
			return nil, fmt.Errorf("unknown reference '%s'", name[len(ReferencePrefix):])
		}
		return ref, nil
	}
	if p, ok := r.projects[name]; ok {
		return p, nil
	}
	if p, ok := r.pipelines[name]; ok {
		return p, nil
	}
	for _, st := range r.stageList {
		if st.Match(name) {
			return st, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// BeginStage opens a definition scope for the stage. At most one stage may
// be active at any time.
func (r *Registry) BeginStage(st *Stage) (*Scope, error) {
	if r.active != nil {
		return nil, &DefinitionError{
			Stage: st.name, Source: st.Source,
			Msg: fmt.Sprintf("cannot enter stage: already in stage '%s'", r.active.stage.name),
		}
	}
	scope := &Scope{
		reg:       r,
		stage:     st,
		lastRules: append([]string(nil), st.rules...),
	}
	r.active = scope
	return scope, nil
}

// EndStage closes a definition scope previously opened with BeginStage.
func (r *Registry) EndStage(sc *Scope) error {
	if r.active != sc {
		return fmt.Errorf("stage scope mismatch: closing a scope that is not active")
	}
	r.active = nil
	return nil
}

// Active returns the currently open definition scope, or nil.
func (r *Registry) Active() *Scope { return r.active }

// AddRuleOrder records that the execution engine should prefer rule
// preferred over rule other wherever both could produce the same output.
func (r *Registry) AddRuleOrder(preferred, other string) {
	r.ruleOrder = append(r.ruleOrder, [2]string{preferred, other})
}

// RuleOrder returns all recorded precedence constraints.
func (r *Registry) RuleOrder() [][2]string {
	return append([][2]string(nil), r.ruleOrder...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
