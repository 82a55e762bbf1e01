package stage

import (
	"fmt"
	"strings"
)

// ReferencePrefix marks a path segment as naming a reference.
const ReferencePrefix = "ref_"

// Reference is a virtual stage exposing a fixed set of externally provided
// files as if they were stage outputs. It has no upstream dependency.
type Reference struct {
	shortName string
	dir       string
	// files maps local file names (with the literal token ALL standing in
	// for the sample) to their on-disk locations.
	files map[string]string
	group []string
}

// NewReference creates a reference. name is the short name without the
// "ref_" prefix; group defaults to the single combined output "ALL".
func NewReference(name, dir string, files map[string]string, group []string) *Reference {
	if len(group) == 0 {
		group = []string{"ALL"}
	}
	return &Reference{
		shortName: name,
		dir:       dir,
		files:     files,
		group:     group,
	}
}

// Name returns the full segment name including the "ref_" prefix.
func (r *Reference) Name() string { return ReferencePrefix + r.shortName }

func (r *Reference) Match(name string) bool {
	return name == r.Name()
}

func (r *Reference) Inputs() map[string]bool { return map[string]bool{} }

// Outputs exposes each file as an output type, with the ALL token replaced
// by the sample wildcard.
func (r *Reference) Outputs() map[string]string {
	outputs := make(map[string]string, len(r.files))
	for f := range r.files {
		outputs["/"+strings.ReplaceAll(f, "ALL", "{sample}")] = ""
	}
	return outputs
}

func (r *Reference) CanProvide(inputs map[string]bool) map[string]string {
	return intersectOutputs(r.Outputs(), inputs)
}

// Path returns the reference directory; reference files live outside any
// stack directory.
func (r *Reference) Path(_ *Stack) string { return r.dir }

// Group returns the fixed grouping of the reference files.
func (r *Reference) Group(_ *Stack) ([]string, bool, error) {
	if len(r.group) == 1 && r.group[0] == "ALL" {
		return []string{}, true, nil
	}
	return append([]string(nil), r.group...), true, nil
}

// File returns the on-disk location of a local file name, or an error
// naming the reference and the available files.
func (r *Reference) File(name string) (string, error) {
	if path, ok := r.files[name]; ok {
		return path, nil
	}
	available := make([]string, 0, len(r.files))
	for f := range r.files {
		available = append(available, f)
	}
	return "", fmt.Errorf("reference '%s': no file '%s' (available: %s)",
		r.shortName, name, strings.Join(available, ", "))
}
