package stage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParamKind enumerates the supported stage parameter types.
type ParamKind string

const (
	// ParamFlag is a present/absent toggle embedded in the stage name.
	ParamFlag ParamKind = "flag"
	// ParamInt is an integer value following its trigger key, e.g. "Q20".
	ParamInt ParamKind = "int"
	// ParamChoice selects one of a fixed set of alternatives.
	ParamChoice ParamKind = "choice"
)

// Param is a single named, regex-matchable parameter attached to a stage.
// Params are immutable once constructed; the regex fragment of every kind
// matches the empty string so the unparametrized stage name still matches.
type Param struct {
	// Key is the short literal token embedded in stage names, e.g. "Q".
	Key string
	// Name is the parameter name exposed to rule templates as {params.<Name>}.
	Name string
	// Kind selects the matching and conversion behavior.
	Kind ParamKind
	// Value is the literal substituted when a flag param is present.
	Value string
	// Default is the value used when the param is absent from the stage
	// name: a string for flag/choice, an int for int.
	Default any
	// Choices lists the alternatives of a choice param.
	Choices []string

	fragment string
}

// NewParam validates and builds a parameter for the named stage. The stage
// name only appears in error messages; ownership is established by the
// caller appending the result to its stage.
func NewParam(stageName string, kind ParamKind, key, name string, value string, def any, choices []string) (*Param, error) {
	if key == "" {
		return nil, &DefinitionError{Stage: stageName, Msg: fmt.Sprintf("parameter '%s' has no key", name)}
	}
	p := &Param{Key: key, Name: name, Kind: kind, Value: value, Choices: choices}

	switch kind {
	case ParamFlag:
		if value == "" {
			return nil, &DefinitionError{
				Stage: stageName,
				Msg:   fmt.Sprintf("flag parameter '%s' must have 'value' set", name),
			}
		}
		p.Default = ""
		if def != nil {
			s, ok := def.(string)
			if !ok {
				return nil, &DefinitionError{
					Stage: stageName,
					Msg:   fmt.Sprintf("flag parameter '%s' default must be a string", name),
				}
			}
			p.Default = s
		}
		p.fragment = fmt.Sprintf("((?:%s)?)", regexp.QuoteMeta(key))

	case ParamInt:
		n, ok := def.(int)
		if !ok {
			return nil, &DefinitionError{
				Stage: stageName,
				Msg:   fmt.Sprintf("int parameter '%s' must have 'default' set", name),
			}
		}
		p.Default = n
		p.fragment = fmt.Sprintf("(%s\\d+|)", regexp.QuoteMeta(key))

	case ParamChoice:
		s, ok := def.(string)
		if !ok {
			return nil, &DefinitionError{
				Stage: stageName,
				Msg:   fmt.Sprintf("choice parameter '%s' must have 'default' set", name),
			}
		}
		if len(choices) == 0 {
			return nil, &DefinitionError{
				Stage: stageName,
				Msg:   fmt.Sprintf("choice parameter '%s' has no choices", name),
			}
		}
		p.Default = s
		quoted := make([]string, len(choices))
		for i, c := range choices {
			quoted[i] = regexp.QuoteMeta(c)
		}
		p.fragment = fmt.Sprintf("(%s(?:%s)|)", regexp.QuoteMeta(key), strings.Join(quoted, "|"))

	default:
		return nil, &DefinitionError{
			Stage: stageName,
			Msg:   fmt.Sprintf("unknown parameter type '%s'", kind),
		}
	}

	return p, nil
}

// Wildcard returns the placeholder name under which this param's raw match
// is exposed to downstream wildcard handling.
func (p *Param) Wildcard() string {
	return "_sp_" + p.Name
}

// Fragment returns the regex fragment matching this param, wrapped in a
// named capture group for Wildcard().
func (p *Param) Fragment() string {
	// Rewrite the outer group into a named one.
	return fmt.Sprintf("(?P<%s>%s", p.Wildcard(), p.fragment[1:])
}

// Constraint returns the bare regex fragment without a capture group name,
// suitable for a wildcard constraint handed to the execution engine.
func (p *Param) Constraint() string {
	return p.fragment
}

// Pattern returns the placeholder this param contributes to a stage's
// directory template, e.g. "{_sp_qual}".
func (p *Param) Pattern() string {
	return "{" + p.Wildcard() + "}"
}

// Parse converts the text captured for this param into its typed value, or
// the default if the optional group did not match.
func (p *Param) Parse(captured string) (any, error) {
	if captured == "" {
		return p.Default, nil
	}
	rest := captured[len(p.Key):]
	switch p.Kind {
	case ParamFlag:
		return p.Value, nil
	case ParamInt:
		n, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("parameter '%s': bad int %q: %w", p.Name, rest, err)
		}
		return n, nil
	case ParamChoice:
		return rest, nil
	}
	return nil, fmt.Errorf("parameter '%s': unknown kind '%s'", p.Name, p.Kind)
}

// Format renders the name suffix for a given value: empty when the value
// equals the default, key+value otherwise.
func (p *Param) Format(value any) string {
	if value == nil || value == p.Default {
		return ""
	}
	if p.Kind == ParamFlag {
		return p.Key
	}
	return fmt.Sprintf("%s%v", p.Key, value)
}
