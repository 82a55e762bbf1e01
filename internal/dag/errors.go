package dag

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle, carrying the full chain of nodes.
type CycleError struct {
	Nodes []string
}

// Error formats the cycle as "a => b => c => a".
func (e *CycleError) Error() string {
	if len(e.Nodes) == 0 {
		return "dependency cycle detected"
	}
	chain := append(append([]string(nil), e.Nodes...), e.Nodes[0])
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(chain, " => "))
}
