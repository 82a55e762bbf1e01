package expand

import (
	"fmt"
	"strings"

	"github.com/vk/stagewalk/internal/model"
)

// span locates one named entry within the flattened value sequence.
// [start, end) indexes into the values slice; scalar entries span one slot
// and write back as a single value rather than a list.
type span struct {
	start, end int
	scalar     bool
}

// NamedList is the uniform, indexable view of one rule field: positional
// values first, then each named entry's value(s), with the name recorded as
// a span over the same sequence.
type NamedList struct {
	values []any
	order  []string
	spans  map[string]span

	npos int
}

// newNamedList flattens an argument tuple. The tuple must already have been
// flattened with flattenTuple so spans map one-to-one onto the sequence.
func newNamedList(t *model.ArgsTuple) *NamedList {
	l := &NamedList{spans: make(map[string]span)}
	if t == nil {
		return l
	}
	for _, v := range t.Pos {
		l.values = append(l.values, v)
	}
	l.npos = len(l.values)
	for _, arg := range t.Named {
		if list, ok := arg.Value.([]any); ok {
			start := len(l.values)
			l.values = append(l.values, list...)
			l.setName(arg.Name, span{start: start, end: len(l.values)})
		} else {
			l.values = append(l.values, arg.Value)
			l.setName(arg.Name, span{start: len(l.values) - 1, end: len(l.values), scalar: true})
		}
	}
	return l
}

func (l *NamedList) setName(name string, sp span) {
	if _, ok := l.spans[name]; !ok {
		l.order = append(l.order, name)
	}
	l.spans[name] = sp
}

// Len returns the number of flattened values.
func (l *NamedList) Len() int { return len(l.values) }

// Value returns the value at index i.
func (l *NamedList) Value(i int) any { return l.values[i] }

// Set replaces the value at index i.
func (l *NamedList) Set(i int, v any) { l.values[i] = v }

// Names returns the named entries in declaration order.
func (l *NamedList) Names() []string { return l.order }

// Span returns the index range of a named entry.
func (l *NamedList) Span(name string) (span, bool) {
	sp, ok := l.spans[name]
	return sp, ok
}

// Resolve renders the value(s) selected by a placeholder name relative to
// this field: "" for the whole field, ".name" for a named span, "[i]" for
// one index. ok is false when the selection is unknown or any selected
// value is not renderable text.
func (l *NamedList) Resolve(sel string) (string, bool) {
	switch {
	case sel == "":
		return renderValues(l.values)
	case strings.HasPrefix(sel, "."):
		sp, ok := l.spans[sel[1:]]
		if !ok {
			return "", false
		}
		return renderValues(l.values[sp.start:sp.end])
	case strings.HasPrefix(sel, "[") && strings.HasSuffix(sel, "]"):
		var i int
		if _, err := fmt.Sscanf(sel, "[%d]", &i); err != nil {
			return "", false
		}
		if i < 0 || i >= len(l.values) {
			return "", false
		}
		return renderValues(l.values[i : i+1])
	}
	return "", false
}

// UpdateTuple writes the possibly rewritten values back into the tuple the
// list was built from, preserving its positional and named shape.
func (l *NamedList) UpdateTuple(t *model.ArgsTuple) {
	for i := range t.Pos {
		t.Pos[i] = l.values[i]
	}
	for i, arg := range t.Named {
		sp := l.spans[arg.Name]
		if sp.scalar {
			t.Named[i].Value = l.values[sp.start]
		} else {
			t.Named[i].Value = append([]any(nil), l.values[sp.start:sp.end]...)
		}
	}
}

// renderValues joins values with spaces. Only strings and numbers render;
// a closure or nested structure makes the whole selection unrenderable.
func renderValues(values []any) (string, bool) {
	parts := make([]string, len(values))
	for i, v := range values {
		switch v.(type) {
		case string, int, float64, bool:
			parts[i] = fmt.Sprint(v)
		default:
			return "", false
		}
	}
	return strings.Join(parts, " "), true
}

// flattenTuple flattens nested lists in positional and named values so the
// tuple maps one-to-one onto a NamedList.
func flattenTuple(t *model.ArgsTuple) {
	if t == nil {
		return
	}
	t.Pos = flattenList(t.Pos)
	for i, arg := range t.Named {
		if list, ok := arg.Value.([]any); ok {
			t.Named[i].Value = flattenList(list)
		}
	}
}

func flattenList(list []any) []any {
	var flat []any
	for _, v := range list {
		if sub, ok := v.([]any); ok {
			flat = append(flat, flattenList(sub)...)
		} else {
			flat = append(flat, v)
		}
	}
	return flat
}
