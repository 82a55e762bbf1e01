package expand

import (
	"fmt"
	"strings"
)

// CircularReferenceError reports rule fields referencing each other in a
// cycle. Chain holds the nodes in reference order; the message closes the
// loop back to the first node.
type CircularReferenceError struct {
	Rule  string
	Chain []string
}

func (e *CircularReferenceError) Error() string {
	chain := append(append([]string(nil), e.Chain...), e.Chain[0])
	return fmt.Sprintf("circular reference in rule %s: %s",
		e.Rule, strings.Join(chain, " => "))
}

// UnresolvedError reports placeholders that remained unresolved after all
// late-binding values were supplied.
type UnresolvedError struct {
	Text  string
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved placeholder(s) %s in '%s'",
		strings.Join(e.Names, ", "), e.Text)
}

// InheritanceError reports a failed rule derivation.
type InheritanceError struct {
	Rule   string
	Parent string
	Msg    string
}

func (e *InheritanceError) Error() string {
	return fmt.Sprintf("'%s' when deriving %s from %s", e.Msg, e.Rule, e.Parent)
}
