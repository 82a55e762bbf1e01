package stage

import "fmt"

// NotFoundError reports a path segment that no project, pipeline, reference
// or stage can account for.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown stage '%s'", e.Name)
}

// DefinitionError reports a broken stage or parameter definition. Where the
// definition came from a file, Source carries "file:line".
type DefinitionError struct {
	Stage  string
	Source string
	Msg    string
}

func (e *DefinitionError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("stage '%s' (%s): %s", e.Stage, e.Source, e.Msg)
	}
	return fmt.Sprintf("stage '%s': %s", e.Stage, e.Msg)
}

// StackError reports a path that cannot be resolved into a stage stack.
type StackError struct {
	Path string
	Msg  string
}

func (e *StackError) Error() string {
	return fmt.Sprintf("stack '%s': %s", e.Path, e.Msg)
}
