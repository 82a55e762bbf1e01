package expand

import "fmt"

// LateFunc is a deferred closure standing in for a rule field value that
// cannot be resolved until per-job values exist. The execution engine calls
// it with the values named in Params.
type LateFunc struct {
	// Params names the late parameters the closure needs, e.g.
	// "wildcards", "input", "threads".
	Params []string

	fn func(values map[string]any) (string, error)
}

// NewLateFunc wraps fn as a deferred closure requiring params.
func NewLateFunc(params []string, fn func(values map[string]any) (string, error)) *LateFunc {
	return &LateFunc{Params: params, fn: fn}
}

// Call invokes the closure. values is keyed by parameter name; the
// "wildcards" entry is a map[string]string of per-job wildcard values.
func (f *LateFunc) Call(values map[string]any) (string, error) {
	return f.fn(values)
}

// lateLookup builds a placeholder resolver over per-job values: wildcard
// names resolve from the wildcards map, other names from the values map by
// their root, with ".attr" access into nested maps.
func lateLookup(values map[string]any) func(name string) (string, bool) {
	wildcards, _ := values["wildcards"].(map[string]string)
	return func(name string) (string, bool) {
		if v, ok := wildcards[name]; ok {
			return v, true
		}
		root := rootName(name)
		v, ok := values[root]
		if !ok {
			return "", false
		}
		if rest, found := attrAfter(name, root); found {
			switch m := v.(type) {
			case map[string]any:
				if v, ok = m[rest]; !ok {
					return "", false
				}
			case map[string]string:
				s, found := m[rest]
				if !found {
					return "", false
				}
				v = s
			default:
				return "", false
			}
		}
		return fmt.Sprint(v), true
	}
}

// attrAfter returns the attribute access following root in name, if any.
func attrAfter(name, root string) (string, bool) {
	if len(name) > len(root) && name[len(root)] == '.' {
		return name[len(root)+1:], true
	}
	return "", false
}
