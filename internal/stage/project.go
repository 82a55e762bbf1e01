package stage

import (
	"fmt"
	"strings"

	"github.com/vk/stagewalk/internal/tabular"
)

// defaultProjectOutputs are the file types a project provides when the
// workspace config does not override them.
var defaultProjectOutputs = []string{
	"/{sample}.R1.fq.gz",
	"/{sample}.R2.fq.gz",
}

// Project is the virtual stage at the root of every path. It is backed by a
// sample table and provides per-row identifiers and the grouping queries
// used to minimize output multiplicity.
type Project struct {
	name    string
	data    *tabular.Table
	idcol   string
	outputs []string
}

// NewProject creates a project over a sample table. idCol names the column
// identifying each sample; when empty, the leftmost column with unique
// values is chosen. outputs overrides the provided file types; nil selects
// the defaults.
func NewProject(name string, data *tabular.Table, idCol string, outputs []string) (*Project, error) {
	unique, err := data.IdentifyingColumns()
	if err != nil {
		return nil, fmt.Errorf("project '%s': %w", name, err)
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf(
			"project '%s': data has no column with unique values per row;"+
				" at least one is needed to identify samples", name)
	}
	if idCol == "" {
		idCol = unique[0]
	} else {
		if !data.HasColumn(idCol) {
			return nil, fmt.Errorf(
				"project '%s': id column '%s' not found in data (available: %s)",
				name, idCol, strings.Join(data.Columns(), ", "))
		}
		if !contains(unique, idCol) {
			dups, err := data.DuplicateRows(idCol)
			if err != nil {
				return nil, fmt.Errorf("project '%s': %w", name, err)
			}
			return nil, fmt.Errorf(
				"project '%s': id column '%s' is not unique (duplicated: %s; unique columns: %s)",
				name, idCol, strings.Join(dups, ", "), strings.Join(unique, ", "))
		}
	}
	if outputs == nil {
		outputs = defaultProjectOutputs
	}
	return &Project{
		name:    name,
		data:    data,
		idcol:   idCol,
		outputs: append([]string(nil), outputs...),
	}, nil
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Data returns the backing sample table.
func (p *Project) Data() *tabular.Table { return p.data }

// IDCol returns the column identifying each sample.
func (p *Project) IDCol() string { return p.idcol }

// Variables returns the sample table columns usable as grouping variables.
func (p *Project) Variables() []string { return p.data.Columns() }

func (p *Project) Match(name string) bool { return name == p.name }

func (p *Project) Inputs() map[string]bool { return map[string]bool{} }

// Outputs exposes the configured raw-data file types.
func (p *Project) Outputs() map[string]string {
	outputs := make(map[string]string, len(p.outputs))
	for _, typ := range p.outputs {
		outputs[typ] = ""
	}
	return outputs
}

func (p *Project) CanProvide(inputs map[string]bool) map[string]string {
	return intersectOutputs(p.Outputs(), inputs)
}

// Path returns the project directory, which is the path itself.
func (p *Project) Path(stack *Stack) string { return stack.Path }

// Group fixes the project's grouping to its id column: raw data comes one
// unit per sample.
func (p *Project) Group(_ *Stack) ([]string, bool, error) {
	return []string{p.idcol}, true, nil
}

// MinimizeVariables drops grouping columns that are functionally redundant
// given the others. Names that are not sample table columns are passed
// through unchanged in other. The dedup sweep is order-sensitive, so it
// runs forward, then backward over the reversed result, then forward again.
func (p *Project) MinimizeVariables(groups []string) (minimal, other []string, err error) {
	var known []string
	for _, g := range groups {
		if p.data.HasColumn(g) {
			known = append(known, g)
		} else {
			other = append(other, g)
		}
	}
	if len(known) < 2 {
		return known, other, nil
	}
	minimal, err = p.data.GroupByDedup(known)
	if err != nil {
		return nil, nil, fmt.Errorf("project '%s': %w", p.name, err)
	}
	reverse(minimal)
	minimal, err = p.data.GroupByDedup(minimal)
	if err != nil {
		return nil, nil, fmt.Errorf("project '%s': %w", p.name, err)
	}
	reverse(minimal)
	return minimal, other, nil
}

// GetIDs returns the identifiers produced under the given grouping,
// optionally translated from an upstream grouping constrained to
// matchValue. Empty groups mean a single combined output named ALL.
func (p *Project) GetIDs(groups, matchGroups []string, matchValue string) ([]string, error) {
	// Grouping names that are not table columns cannot constrain the query.
	if matchGroups != nil {
		var availGroups, availValues []string
		values := strings.Split(matchValue, "__")
		for i, g := range matchGroups {
			if i < len(values) && p.data.HasColumn(g) {
				availGroups = append(availGroups, g)
				availValues = append(availValues, values[i])
			}
		}
		matchGroups = availGroups
		matchValue = strings.Join(availValues, "__")
	}

	if len(groups) == 0 {
		return []string{"ALL"}, nil
	}
	if matchValue == "ALL" {
		matchValue = ""
		matchGroups = nil
	}
	if len(matchGroups) == 0 && matchValue != "" {
		return []string{matchValue}, nil
	}
	if equalStrings(groups, matchGroups) {
		return []string{matchValue}, nil
	}
	return p.doGetIDs(groups, matchGroups, matchValue)
}

func (p *Project) doGetIDs(groups, matchGroups []string, matchValue string) ([]string, error) {
	var matchValues []string
	if matchValue != "" {
		matchValues = strings.Split(matchValue, "__")
	}
	tuples, err := p.data.Distinct(groups, matchGroups, matchValues)
	if err != nil {
		return nil, fmt.Errorf("project '%s': %w", p.name, err)
	}
	ids := make([]string, len(tuples))
	for i, t := range tuples {
		ids[i] = strings.Join(t, "__")
	}
	return ids, nil
}

func contains(list []string, s string) bool {
	for _, have := range list {
		if have == s {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
