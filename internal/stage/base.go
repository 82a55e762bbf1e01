package stage

// Provider is the capability shared by regular stages and the virtual stage
// kinds (Project, Pipeline, Reference, GroupBy): being addressable as a path
// segment and offering output file types to downstream stages.
type Provider interface {
	// Name returns the unique primary name.
	Name() string

	// Match reports whether the path segment can refer to this provider,
	// including any parametrized suffix.
	Match(name string) bool

	// Inputs returns a copy of the set of input file types required.
	Inputs() map[string]bool

	// Outputs maps each provided output file type to a redirect suffix.
	// An empty suffix means the provider itself produces the file; virtual
	// stages that alias other stages return the path suffix of the actual
	// producer.
	Outputs() map[string]string

	// CanProvide returns the subset of inputs this provider can satisfy,
	// mapped to redirect suffixes as in Outputs.
	CanProvide(inputs map[string]bool) map[string]string

	// Path returns the on-disk location of this provider's files given the
	// stack it appears in.
	Path(stack *Stack) string

	// Group returns the grouping columns this provider imposes. ok is false
	// when the provider imposes none and grouping should be inferred from
	// the upstream stacks.
	Group(stack *Stack) (cols []string, ok bool, err error)
}

// intersectOutputs is the default CanProvide: the requested inputs that
// appear in outputs, with their redirect suffixes.
func intersectOutputs(outputs map[string]string, inputs map[string]bool) map[string]string {
	provides := make(map[string]string)
	for typ, suffix := range outputs {
		if inputs[typ] {
			provides[typ] = suffix
		}
	}
	return provides
}
